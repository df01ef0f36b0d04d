package expense

import (
	"time"

	"github.com/shopspring/decimal"

	expenseDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-approval/internal/core/role"
	"github.com/frahmantamala/expense-approval/internal/workflow"
)

type Expense struct {
	ID                int64
	CompanyID         int64
	EmployeeID        int64
	OriginalAmount    decimal.Decimal
	OriginalCurrency  string
	ConvertedAmount   decimal.Decimal
	ConvertedCurrency string
	Category          string
	Description       string
	ExpenseDate       time.Time
	ReceiptURL        *string
	Status            workflow.Status
	ApprovalRuleID    *int64
	Approvals         []workflow.Approval
	Version           int64
	SubmittedAt       time.Time
	ProcessedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (e *Expense) IsTerminal() bool {
	return e.Status.IsTerminal()
}

// HasSlot reports whether userID holds an approval slot on the expense.
func (e *Expense) HasSlot(userID int64) bool {
	_, ok := workflow.FindSlot(e.Approvals, userID)
	return ok
}

// PendingApproverIDs lists approvers that still owe a decision, in slot order.
func (e *Expense) PendingApproverIDs() []int64 {
	ids := make([]int64, 0, len(e.Approvals))
	for _, a := range e.Approvals {
		if a.IsPending() {
			ids = append(ids, a.ApproverID)
		}
	}
	return ids
}

// setStatus moves the expense to status and stamps ProcessedAt on terminal states.
func (e *Expense) setStatus(status workflow.Status, at time.Time) {
	e.Status = status
	if status.IsTerminal() {
		t := at
		e.ProcessedAt = &t
	}
}

func (e *Expense) ToResponse() ExpenseResponse {
	approvals := e.Approvals
	if approvals == nil {
		approvals = []workflow.Approval{}
	}
	return ExpenseResponse{
		ID:                e.ID,
		EmployeeID:        e.EmployeeID,
		OriginalAmount:    e.OriginalAmount.StringFixed(2),
		OriginalCurrency:  e.OriginalCurrency,
		ConvertedAmount:   e.ConvertedAmount.StringFixed(2),
		ConvertedCurrency: e.ConvertedCurrency,
		Category:          e.Category,
		Description:       e.Description,
		ExpenseDate:       e.ExpenseDate.Format(dateLayout),
		ReceiptURL:        e.ReceiptURL,
		Status:            e.Status,
		ApprovalRuleID:    e.ApprovalRuleID,
		Approvals:         approvals,
		Version:           e.Version,
		SubmittedAt:       e.SubmittedAt,
		ProcessedAt:       e.ProcessedAt,
	}
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	approvals := make([]expenseDatamodel.ExpenseApproval, 0, len(e.Approvals))
	for _, a := range e.Approvals {
		approvals = append(approvals, expenseDatamodel.ExpenseApproval{
			ID:           a.ID,
			ExpenseID:    e.ID,
			ApproverID:   a.ApproverID,
			ApproverRole: string(a.ApproverRole),
			Decision:     string(a.Decision),
			Comments:     a.Comments,
			DecisionDate: a.DecisionDate,
			Step:         a.Step,
			Required:     a.Required,
			AutoApproved: a.AutoApproved,
		})
	}

	return &expenseDatamodel.Expense{
		ID:                e.ID,
		CompanyID:         e.CompanyID,
		EmployeeID:        e.EmployeeID,
		OriginalAmount:    e.OriginalAmount,
		OriginalCurrency:  e.OriginalCurrency,
		ConvertedAmount:   e.ConvertedAmount,
		ConvertedCurrency: e.ConvertedCurrency,
		Category:          e.Category,
		Description:       e.Description,
		ExpenseDate:       e.ExpenseDate,
		ReceiptURL:        e.ReceiptURL,
		Status:            string(e.Status),
		ApprovalRuleID:    e.ApprovalRuleID,
		Version:           e.Version,
		SubmittedAt:       e.SubmittedAt,
		ProcessedAt:       e.ProcessedAt,
		Approvals:         approvals,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

func FromDataModel(m *expenseDatamodel.Expense) *Expense {
	approvals := make([]workflow.Approval, 0, len(m.Approvals))
	for _, a := range m.Approvals {
		approvals = append(approvals, workflow.Approval{
			ID:           a.ID,
			ApproverID:   a.ApproverID,
			ApproverRole: role.Role(a.ApproverRole),
			Decision:     workflow.Decision(a.Decision),
			Comments:     a.Comments,
			DecisionDate: a.DecisionDate,
			Step:         a.Step,
			Required:     a.Required,
			AutoApproved: a.AutoApproved,
		})
	}

	return &Expense{
		ID:                m.ID,
		CompanyID:         m.CompanyID,
		EmployeeID:        m.EmployeeID,
		OriginalAmount:    m.OriginalAmount,
		OriginalCurrency:  m.OriginalCurrency,
		ConvertedAmount:   m.ConvertedAmount,
		ConvertedCurrency: m.ConvertedCurrency,
		Category:          m.Category,
		Description:       m.Description,
		ExpenseDate:       m.ExpenseDate,
		ReceiptURL:        m.ReceiptURL,
		Status:            workflow.Status(m.Status),
		ApprovalRuleID:    m.ApprovalRuleID,
		Approvals:         approvals,
		Version:           m.Version,
		SubmittedAt:       m.SubmittedAt,
		ProcessedAt:       m.ProcessedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func FromDataModelSlice(models []*expenseDatamodel.Expense) []*Expense {
	result := make([]*Expense, len(models))
	for i, m := range models {
		result[i] = FromDataModel(m)
	}
	return result
}
