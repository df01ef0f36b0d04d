package rule

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
	ruleDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/rule"
)

type RepositoryAPI interface {
	Create(ctx context.Context, rule *ruleDatamodel.ApprovalRule) error
	ListByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]*ruleDatamodel.ApprovalRule, error)
	// GetByID returns nil when the rule does not exist in the company or was deleted.
	GetByID(ctx context.Context, companyID, id int64) (*ruleDatamodel.ApprovalRule, error)
	// GetSnapshot also returns deleted rules.
	GetSnapshot(ctx context.Context, id int64) (*ruleDatamodel.ApprovalRule, error)
	Delete(ctx context.Context, companyID, id int64) (bool, error)
}

// MemberChecker confirms that a user belongs to a company.
type MemberChecker interface {
	IsMember(ctx context.Context, userID, companyID int64) (bool, error)
}

type Service struct {
	repo    RepositoryAPI
	members MemberChecker
	logger  *slog.Logger
}

func NewService(repo RepositoryAPI, members MemberChecker, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		members: members,
		logger:  logger,
	}
}

func (s *Service) Create(ctx context.Context, companyID int64, dto CreateRuleDTO) (*Rule, error) {
	if appErr := validation.Struct(dto); appErr != nil {
		appErr.Code = errors.ErrCodeInvalidRule
		return nil, appErr
	}

	r := dto.ToRule(companyID)
	if appErr := r.Validate(); appErr != nil {
		return nil, appErr
	}

	if r.SpecificApproverID != nil {
		ok, err := s.members.IsMember(ctx, *r.SpecificApproverID, companyID)
		if err != nil {
			s.logger.Error("failed to check specific approver", "approver_id", *r.SpecificApproverID, "error", err)
			return nil, errors.NewInternalError("failed to check specific approver", err)
		}
		if !ok {
			return nil, errors.NewValidationErrors(errors.ErrCodeInvalidRule, errors.ValidationError{
				Field:   "specific_approver_id",
				Message: "specific approver must be a user of the same company",
				Code:    string(errors.ErrCodeInvalidRule),
			})
		}
	}

	model := ToDataModel(r)
	if err := s.repo.Create(ctx, model); err != nil {
		s.logger.Error("failed to create approval rule", "company_id", companyID, "error", err)
		return nil, errors.NewInternalError("failed to create approval rule", err)
	}

	s.logger.Info("approval rule created", "rule_id", model.ID, "company_id", companyID, "threshold", r.AmountThreshold.String())
	return FromDataModel(model), nil
}

func (s *Service) List(ctx context.Context, companyID int64) ([]*Rule, error) {
	models, err := s.repo.ListByCompany(ctx, companyID, false)
	if err != nil {
		s.logger.Error("failed to list approval rules", "company_id", companyID, "error", err)
		return nil, errors.NewInternalError("failed to list approval rules", err)
	}
	return FromDataModelSlice(models), nil
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (*Rule, error) {
	model, err := s.repo.GetByID(ctx, companyID, id)
	if err != nil {
		s.logger.Error("failed to get approval rule", "rule_id", id, "error", err)
		return nil, errors.NewInternalError("failed to get approval rule", err)
	}
	if model == nil {
		return nil, errors.ErrRuleNotFound
	}
	return FromDataModel(model), nil
}

// Delete retires a rule. In-flight expenses keep evaluating against it.
func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	deleted, err := s.repo.Delete(ctx, companyID, id)
	if err != nil {
		s.logger.Error("failed to delete approval rule", "rule_id", id, "error", err)
		return errors.NewInternalError("failed to delete approval rule", err)
	}
	if !deleted {
		return errors.ErrRuleNotFound
	}
	s.logger.Info("approval rule deleted", "rule_id", id, "company_id", companyID)
	return nil
}

// SelectRule returns the rule governing a converted amount, or nil when the
// company has no active rules.
func (s *Service) SelectRule(ctx context.Context, companyID int64, amount decimal.Decimal) (*Rule, error) {
	models, err := s.repo.ListByCompany(ctx, companyID, true)
	if err != nil {
		s.logger.Error("failed to load rules for selection", "company_id", companyID, "error", err)
		return nil, errors.NewInternalError("failed to load approval rules", err)
	}
	selected := Select(FromDataModelSlice(models), amount)
	if selected == nil {
		s.logger.Info("no approval rule configured, using default sequence", "company_id", companyID)
	}
	return selected, nil
}

// GetSnapshot loads the rule an expense was submitted under, deleted or not.
func (s *Service) GetSnapshot(ctx context.Context, id int64) (*Rule, error) {
	model, err := s.repo.GetSnapshot(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError("failed to load approval rule", err)
	}
	if model == nil {
		return nil, errors.ErrRuleNotFound
	}
	return FromDataModel(model), nil
}
