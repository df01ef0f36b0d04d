package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeExpenseSubmitted = "expense.submitted"
	EventTypeExpenseResolved  = "expense.resolved"
)

type ExpenseSubmittedEvent struct {
	BaseEvent
	ExpenseID  int64           `json:"expense_id"`
	CompanyID  int64           `json:"company_id"`
	EmployeeID int64           `json:"employee_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Category   string          `json:"category"`
	// ApproverIDs are the slots still waiting for a decision.
	ApproverIDs []int64 `json:"approver_ids"`
}

func NewExpenseSubmittedEvent(expenseID, companyID, employeeID int64, amount decimal.Decimal, currency, category string, approverIDs []int64) *ExpenseSubmittedEvent {
	return &ExpenseSubmittedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeExpenseSubmitted,
			Timestamp: time.Now(),
		},
		ExpenseID:   expenseID,
		CompanyID:   companyID,
		EmployeeID:  employeeID,
		Amount:      amount,
		Currency:    currency,
		Category:    category,
		ApproverIDs: approverIDs,
	}
}

type ExpenseResolvedEvent struct {
	BaseEvent
	ExpenseID  int64           `json:"expense_id"`
	CompanyID  int64           `json:"company_id"`
	EmployeeID int64           `json:"employee_id"`
	Status     string          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	// ActorID made the decision that resolved the expense.
	ActorID    int64 `json:"actor_id"`
	Overridden bool  `json:"overridden"`
}

func NewExpenseResolvedEvent(expenseID, companyID, employeeID int64, status string, amount decimal.Decimal, currency string, actorID int64, overridden bool) *ExpenseResolvedEvent {
	return &ExpenseResolvedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeExpenseResolved,
			Timestamp: time.Now(),
		},
		ExpenseID:  expenseID,
		CompanyID:  companyID,
		EmployeeID: employeeID,
		Status:     status,
		Amount:     amount,
		Currency:   currency,
		ActorID:    actorID,
		Overridden: overridden,
	}
}
