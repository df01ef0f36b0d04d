package expense

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/expense-approval/internal/workflow"
)

const dateLayout = "2006-01-02"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CreateExpenseDTO is the submission payload. Currency defaults to the company currency.
type CreateExpenseDTO struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" validate:"omitempty,len=3,alpha"`
	Category    string          `json:"category" validate:"required,max=64"`
	Description string          `json:"description" validate:"required,max=500"`
	ExpenseDate string          `json:"expense_date" validate:"required,datetime=2006-01-02"`
	ReceiptURL  *string         `json:"receipt_url,omitempty" validate:"omitempty,url"`
}

type DecisionDTO struct {
	Decision string `json:"decision" validate:"required"`
	Comments string `json:"comments" validate:"max=1000"`
}

type OverrideDTO struct {
	Status string `json:"status" validate:"required"`
}

// ListFilter pages through expense listings, newest first.
type ListFilter struct {
	Status workflow.Status
	Limit  int
	Offset int
}

func (f ListFilter) normalize() ListFilter {
	if f.Limit <= 0 || f.Limit > maxPageSize {
		f.Limit = defaultPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// ParseListFilter reads status, limit and offset query values, ignoring malformed ones.
func ParseListFilter(status, limit, offset string) ListFilter {
	f := ListFilter{Status: workflow.Status(status)}
	if !f.Status.Valid() {
		f.Status = ""
	}
	if l, err := strconv.Atoi(limit); err == nil {
		f.Limit = l
	}
	if o, err := strconv.Atoi(offset); err == nil {
		f.Offset = o
	}
	return f.normalize()
}

type ExpenseResponse struct {
	ID                int64               `json:"id"`
	EmployeeID        int64               `json:"employee_id"`
	OriginalAmount    string              `json:"original_amount"`
	OriginalCurrency  string              `json:"original_currency"`
	ConvertedAmount   string              `json:"converted_amount"`
	ConvertedCurrency string              `json:"converted_currency"`
	Category          string              `json:"category"`
	Description       string              `json:"description"`
	ExpenseDate       string              `json:"expense_date"`
	ReceiptURL        *string             `json:"receipt_url,omitempty"`
	Status            workflow.Status     `json:"status"`
	ApprovalRuleID    *int64              `json:"approval_rule_id,omitempty"`
	Approvals         []workflow.Approval `json:"approvals"`
	Version           int64               `json:"version"`
	SubmittedAt       time.Time           `json:"submitted_at"`
	ProcessedAt       *time.Time          `json:"processed_at,omitempty"`
}

type ExpensesResponse struct {
	Expenses []ExpenseResponse `json:"expenses"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// ResolutionResponse is returned after a decision or override.
type ResolutionResponse struct {
	ExpenseID int64               `json:"expense_id"`
	Status    workflow.Status     `json:"status"`
	Approvals []workflow.Approval `json:"approvals"`
}

func toExpensesResponse(expenses []*Expense, f ListFilter) ExpensesResponse {
	resp := ExpensesResponse{Expenses: make([]ExpenseResponse, 0, len(expenses)), Limit: f.Limit, Offset: f.Offset}
	for _, e := range expenses {
		resp.Expenses = append(resp.Expenses, e.ToResponse())
	}
	return resp
}

func toResolutionResponse(e *Expense) ResolutionResponse {
	return ResolutionResponse{ExpenseID: e.ID, Status: e.Status, Approvals: e.ToResponse().Approvals}
}
