package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	ruleDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/rule"
	"github.com/frahmantamala/expense-approval/internal/rule"
)

type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) rule.RepositoryAPI {
	return &RuleRepository{db: db}
}

func orderedSteps(db *gorm.DB) *gorm.DB {
	return db.Order("step ASC")
}

// Create inserts the rule and its steps in one transaction.
func (r *RuleRepository) Create(ctx context.Context, m *ruleDatamodel.ApprovalRule) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(m).Error
	})
}

func (r *RuleRepository) ListByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]*ruleDatamodel.ApprovalRule, error) {
	var rules []*ruleDatamodel.ApprovalRule
	q := r.db.WithContext(ctx).
		Preload("Steps", orderedSteps).
		Where("company_id = ?", companyID)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	err := q.Order("amount_threshold DESC, id ASC").Find(&rules).Error
	return rules, err
}

func (r *RuleRepository) GetByID(ctx context.Context, companyID, id int64) (*ruleDatamodel.ApprovalRule, error) {
	var m ruleDatamodel.ApprovalRule
	err := r.db.WithContext(ctx).
		Preload("Steps", orderedSteps).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *RuleRepository) GetSnapshot(ctx context.Context, id int64) (*ruleDatamodel.ApprovalRule, error) {
	var m ruleDatamodel.ApprovalRule
	err := r.db.WithContext(ctx).
		Unscoped().
		Preload("Steps", orderedSteps).
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// Delete soft-deletes the rule; its steps stay for snapshot reads.
func (r *RuleRepository) Delete(ctx context.Context, companyID, id int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", id, companyID).
		Delete(&ruleDatamodel.ApprovalRule{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
