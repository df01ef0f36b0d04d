package expense

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
	expenseDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/currency"
	"github.com/frahmantamala/expense-approval/internal/rule"
	"github.com/frahmantamala/expense-approval/internal/workflow"
)

// Repository persists expenses together with their approval slots.
type Repository interface {
	Create(ctx context.Context, e *expenseDatamodel.Expense) error
	// GetByID returns nil when the expense does not exist in the company.
	GetByID(ctx context.Context, companyID, id int64) (*expenseDatamodel.Expense, error)
	ListByEmployee(ctx context.Context, companyID, employeeID int64, f ListFilter) ([]*expenseDatamodel.Expense, error)
	ListByCompany(ctx context.Context, companyID int64, f ListFilter) ([]*expenseDatamodel.Expense, error)
	// ListPendingFor returns Pending expenses where approverID still owes a decision.
	ListPendingFor(ctx context.Context, companyID, approverID int64, f ListFilter) ([]*expenseDatamodel.Expense, error)
	// Update writes status and slots only if the stored version equals
	// expectedVersion, bumping it by one. It returns false on a version mismatch.
	Update(ctx context.Context, e *expenseDatamodel.Expense, expectedVersion int64) (bool, error)
}

type RuleProvider interface {
	SelectRule(ctx context.Context, companyID int64, amount decimal.Decimal) (*rule.Rule, error)
	GetSnapshot(ctx context.Context, id int64) (*rule.Rule, error)
}

type SequenceInitializer interface {
	Initialize(ctx context.Context, submitter workflow.Submitter, r *rule.Rule) ([]workflow.Approval, error)
}

type CategoryResolver interface {
	Canonical(ctx context.Context, companyID int64, name string) (string, error)
}

type Service struct {
	repo        Repository
	rules       RuleProvider
	initializer SequenceInitializer
	converter   currency.Converter
	categories  CategoryResolver
	publisher   events.Publisher
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(
	repo Repository,
	rules RuleProvider,
	initializer SequenceInitializer,
	converter currency.Converter,
	categories CategoryResolver,
	publisher events.Publisher,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		rules:       rules,
		initializer: initializer,
		converter:   converter,
		categories:  categories,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
	}
}

// Submit records a new expense: the amount is converted into the company
// currency, a rule is selected on the converted amount and the approval
// slots are built from it.
func (s *Service) Submit(ctx context.Context, p *apperrors.Principal, dto CreateExpenseDTO) (*Expense, error) {
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}
	expenseDate, _ := time.Parse(dateLayout, dto.ExpenseDate)

	v := validation.NewValidator(apperrors.ErrCodeValidationFailed)
	v.Field("amount", dto.Amount).Positive(apperrors.ErrCodeInvalidAmount).
		Custom(func(val interface{}) bool {
			amount := val.(decimal.Decimal)
			return amount.Equal(amount.Round(2))
		}, "amount must have at most two decimal places")
	v.Field("expense_date", expenseDate).NotFuture()
	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}

	category, err := s.categories.Canonical(ctx, p.CompanyID, dto.Category)
	if err != nil {
		return nil, err
	}

	from := currency.Normalize(dto.Currency)
	if from == "" {
		from = p.Currency
	}
	converted, err := s.converter.Convert(ctx, dto.Amount, from, p.Currency)
	if err != nil {
		s.logger.Warn("currency conversion failed", "from", from, "to", p.Currency, "error", err)
		return nil, err
	}

	selected, err := s.rules.SelectRule(ctx, p.CompanyID, converted)
	if err != nil {
		return nil, err
	}

	approvals, err := s.initializer.Initialize(ctx, workflow.Submitter{
		ID:        p.UserID,
		CompanyID: p.CompanyID,
		ManagerID: p.ManagerID,
	}, selected)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build approval sequence", err)
	}

	now := s.now()
	e := &Expense{
		CompanyID:         p.CompanyID,
		EmployeeID:        p.UserID,
		OriginalAmount:    dto.Amount.Round(2),
		OriginalCurrency:  from,
		ConvertedAmount:   converted,
		ConvertedCurrency: p.Currency,
		Category:          category,
		Description:       strings.TrimSpace(dto.Description),
		ExpenseDate:       expenseDate,
		ReceiptURL:        dto.ReceiptURL,
		Status:            workflow.StatusPending,
		Approvals:         approvals,
		Version:           1,
		SubmittedAt:       now,
	}
	if selected != nil {
		id := selected.ID
		e.ApprovalRuleID = &id
	}

	model := ToDataModel(e)
	if err := s.repo.Create(ctx, model); err != nil {
		s.logger.Error("failed to create expense", "employee_id", p.UserID, "error", err)
		return nil, apperrors.NewInternalError("failed to create expense", err)
	}
	e = FromDataModel(model)

	s.logger.Info("expense submitted",
		"expense_id", e.ID,
		"employee_id", e.EmployeeID,
		"converted_amount", e.ConvertedAmount.String(),
		"currency", e.ConvertedCurrency,
		"approval_rule_id", e.ApprovalRuleID,
		"approvers", len(e.Approvals))

	s.publish(ctx, events.NewExpenseSubmittedEvent(e.ID, e.CompanyID, e.EmployeeID,
		e.ConvertedAmount, e.ConvertedCurrency, e.Category, e.PendingApproverIDs()))
	return e, nil
}

// Decide records the caller's decision and re-evaluates the expense.
func (s *Service) Decide(ctx context.Context, p *apperrors.Principal, expenseID int64, dto DecisionDTO) (*Expense, error) {
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}
	decision, ok := workflow.ParseDecision(dto.Decision)
	if !ok {
		return nil, apperrors.ErrInvalidDecision
	}

	e, err := s.load(ctx, p.CompanyID, expenseID)
	if err != nil {
		return nil, err
	}
	if e.EmployeeID == p.UserID {
		return nil, apperrors.NewForbiddenError("submitters cannot decide on their own expense", apperrors.ErrCodeNotAuthorized)
	}

	now := s.now()
	approvals, err := workflow.ApplyDecision(e.Status, e.Approvals, workflow.DecisionInput{
		ApproverID:   p.UserID,
		ApproverRole: p.Role,
		Decision:     decision,
		Comments:     strings.TrimSpace(dto.Comments),
	}, now)
	if err != nil {
		return nil, err
	}
	e.Approvals = approvals

	r, err := s.snapshot(ctx, e)
	if err != nil {
		return nil, err
	}
	e.setStatus(workflow.Evaluate(e.Approvals, r, now), now)

	if err := s.save(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info("expense decision recorded",
		"expense_id", e.ID,
		"approver_id", p.UserID,
		"decision", decision,
		"status", e.Status)

	if e.IsTerminal() {
		s.publish(ctx, events.NewExpenseResolvedEvent(e.ID, e.CompanyID, e.EmployeeID, string(e.Status),
			e.ConvertedAmount, e.ConvertedCurrency, p.UserID, false))
	}
	return e, nil
}

// Override sets the status directly. Approval slots are left untouched and
// the evaluator is not consulted.
func (s *Service) Override(ctx context.Context, p *apperrors.Principal, expenseID int64, dto OverrideDTO) (*Expense, error) {
	if !p.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}
	status := workflow.Status(dto.Status)
	if !status.IsTerminal() {
		return nil, apperrors.ErrInvalidStatus
	}

	e, err := s.load(ctx, p.CompanyID, expenseID)
	if err != nil {
		return nil, err
	}

	previous := e.Status
	e.setStatus(status, s.now())
	if err := s.save(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Warn("expense status overridden",
		"expense_id", e.ID,
		"admin_id", p.UserID,
		"from", previous,
		"to", status)

	s.publish(ctx, events.NewExpenseResolvedEvent(e.ID, e.CompanyID, e.EmployeeID, string(e.Status),
		e.ConvertedAmount, e.ConvertedCurrency, p.UserID, true))
	return e, nil
}

// GetByID returns an expense visible to the caller: its submitter, anyone
// holding a slot on it, or an Admin. Everything else reads as not found.
func (s *Service) GetByID(ctx context.Context, p *apperrors.Principal, expenseID int64) (*Expense, error) {
	e, err := s.load(ctx, p.CompanyID, expenseID)
	if err != nil {
		return nil, err
	}
	if e.EmployeeID != p.UserID && !p.IsAdmin() && !e.HasSlot(p.UserID) {
		s.logger.Warn("expense access denied", "expense_id", expenseID, "user_id", p.UserID)
		return nil, apperrors.ErrExpenseNotFound
	}
	return e, nil
}

func (s *Service) ListMine(ctx context.Context, p *apperrors.Principal, f ListFilter) ([]*Expense, error) {
	rows, err := s.repo.ListByEmployee(ctx, p.CompanyID, p.UserID, f.normalize())
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list expenses", err)
	}
	return FromDataModelSlice(rows), nil
}

func (s *Service) ListCompany(ctx context.Context, p *apperrors.Principal, f ListFilter) ([]*Expense, error) {
	if !p.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	rows, err := s.repo.ListByCompany(ctx, p.CompanyID, f.normalize())
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list expenses", err)
	}
	return FromDataModelSlice(rows), nil
}

// ListPending returns the expenses waiting on the caller's decision.
func (s *Service) ListPending(ctx context.Context, p *apperrors.Principal, f ListFilter) ([]*Expense, error) {
	rows, err := s.repo.ListPendingFor(ctx, p.CompanyID, p.UserID, f.normalize())
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list pending approvals", err)
	}
	return FromDataModelSlice(rows), nil
}

func (s *Service) load(ctx context.Context, companyID, id int64) (*Expense, error) {
	m, err := s.repo.GetByID(ctx, companyID, id)
	if err != nil {
		s.logger.Error("failed to load expense", "expense_id", id, "error", err)
		return nil, apperrors.NewInternalError("failed to load expense", err)
	}
	if m == nil {
		return nil, apperrors.ErrExpenseNotFound
	}
	return FromDataModel(m), nil
}

// snapshot loads the rule the expense was submitted under. A rule that can
// no longer be found degrades to default-sequence evaluation.
func (s *Service) snapshot(ctx context.Context, e *Expense) (*rule.Rule, error) {
	if e.ApprovalRuleID == nil {
		return nil, nil
	}
	r, err := s.rules.GetSnapshot(ctx, *e.ApprovalRuleID)
	if errors.Is(err, apperrors.ErrRuleNotFound) {
		s.logger.Warn("approval rule snapshot missing, evaluating without rule",
			"expense_id", e.ID, "approval_rule_id", *e.ApprovalRuleID)
		return nil, nil
	}
	return r, err
}

func (s *Service) save(ctx context.Context, e *Expense) error {
	model := ToDataModel(e)
	ok, err := s.repo.Update(ctx, model, e.Version)
	if err != nil {
		s.logger.Error("failed to update expense", "expense_id", e.ID, "error", err)
		return apperrors.NewInternalError("failed to update expense", err)
	}
	if !ok {
		s.logger.Warn("expense version conflict", "expense_id", e.ID, "version", e.Version)
		return apperrors.ErrResolutionConflict
	}
	e.Version = model.Version
	for i := range e.Approvals {
		e.Approvals[i].ID = model.Approvals[i].ID
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
