package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	expenseDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"github.com/frahmantamala/expense-approval/internal/workflow"
)

// ExpenseRepository implements the expense.Repository interface using GORM
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expense.Repository {
	return &ExpenseRepository{db: db}
}

func withApprovals(db *gorm.DB) *gorm.DB {
	return db.Preload("Approvals", func(db *gorm.DB) *gorm.DB {
		return db.Order("expense_approvals.id ASC")
	})
}

// Create inserts the expense and its approval slots in one transaction.
func (r *ExpenseRepository) Create(ctx context.Context, e *expenseDatamodel.Expense) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *ExpenseRepository) GetByID(ctx context.Context, companyID, id int64) (*expenseDatamodel.Expense, error) {
	var e expenseDatamodel.Expense
	err := withApprovals(r.db.WithContext(ctx)).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *ExpenseRepository) list(q *gorm.DB, f expense.ListFilter) ([]*expenseDatamodel.Expense, error) {
	if f.Status != "" {
		q = q.Where("expenses.status = ?", string(f.Status))
	}
	var expenses []*expenseDatamodel.Expense
	err := withApprovals(q).
		Order("expenses.submitted_at DESC").
		Order("expenses.id DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&expenses).Error
	return expenses, err
}

func (r *ExpenseRepository) ListByEmployee(ctx context.Context, companyID, employeeID int64, f expense.ListFilter) ([]*expenseDatamodel.Expense, error) {
	q := r.db.WithContext(ctx).Where("expenses.company_id = ? AND expenses.employee_id = ?", companyID, employeeID)
	return r.list(q, f)
}

func (r *ExpenseRepository) ListByCompany(ctx context.Context, companyID int64, f expense.ListFilter) ([]*expenseDatamodel.Expense, error) {
	q := r.db.WithContext(ctx).Where("expenses.company_id = ?", companyID)
	return r.list(q, f)
}

func (r *ExpenseRepository) ListPendingFor(ctx context.Context, companyID, approverID int64, f expense.ListFilter) ([]*expenseDatamodel.Expense, error) {
	var expenses []*expenseDatamodel.Expense
	err := withApprovals(r.db.WithContext(ctx)).
		Where("expenses.company_id = ? AND expenses.status = ?", companyID, string(workflow.StatusPending)).
		Where("EXISTS (SELECT 1 FROM expense_approvals ea WHERE ea.expense_id = expenses.id AND ea.approver_id = ? AND ea.decision = ?)",
			approverID, string(workflow.DecisionPending)).
		Order("expenses.submitted_at ASC").
		Order("expenses.id ASC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&expenses).Error
	return expenses, err
}

// Update is a compare-and-swap on the version column. Slots are written in
// the same transaction; new slots get their ids assigned.
func (r *ExpenseRepository) Update(ctx context.Context, e *expenseDatamodel.Expense, expectedVersion int64) (bool, error) {
	updated := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&expenseDatamodel.Expense{}).
			Where("id = ? AND version = ?", e.ID, expectedVersion).
			Updates(map[string]interface{}{
				"status":       e.Status,
				"processed_at": e.ProcessedAt,
				"version":      expectedVersion + 1,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		for i := range e.Approvals {
			a := &e.Approvals[i]
			a.ExpenseID = e.ID
			if err := tx.Save(a).Error; err != nil {
				return err
			}
		}

		e.Version = expectedVersion + 1
		e.UpdatedAt = now
		updated = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return updated, nil
}
