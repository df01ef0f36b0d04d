package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ID                int64             `gorm:"primaryKey"`
	CompanyID         int64             `gorm:"column:company_id;not null;index"`
	EmployeeID        int64             `gorm:"column:employee_id;not null;index"`
	OriginalAmount    decimal.Decimal   `gorm:"column:original_amount;type:decimal(14,2);not null"`
	OriginalCurrency  string            `gorm:"column:original_currency;size:3;not null"`
	ConvertedAmount   decimal.Decimal   `gorm:"column:converted_amount;type:decimal(14,2);not null"`
	ConvertedCurrency string            `gorm:"column:converted_currency;size:3;not null"`
	Category          string            `gorm:"column:category;not null"`
	Description       string            `gorm:"column:description;not null"`
	ExpenseDate       time.Time         `gorm:"column:expense_date;type:date"`
	ReceiptURL        *string           `gorm:"column:receipt_url"`
	Status            string            `gorm:"column:status;not null;index"`
	ApprovalRuleID    *int64            `gorm:"column:approval_rule_id"`
	Version           int64             `gorm:"column:version;not null"`
	SubmittedAt       time.Time         `gorm:"column:submitted_at"`
	ProcessedAt       *time.Time        `gorm:"column:processed_at"`
	Approvals         []ExpenseApproval `gorm:"foreignKey:ExpenseID"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Expense) TableName() string {
	return "expenses"
}

type ExpenseApproval struct {
	ID           int64      `gorm:"primaryKey"`
	ExpenseID    int64      `gorm:"column:expense_id;not null;uniqueIndex:idx_expense_approver"`
	ApproverID   int64      `gorm:"column:approver_id;not null;uniqueIndex:idx_expense_approver"`
	ApproverRole string     `gorm:"column:approver_role;not null"`
	Decision     string     `gorm:"column:decision;not null"`
	Comments     string     `gorm:"column:comments"`
	DecisionDate *time.Time `gorm:"column:decision_date"`
	Step         *int       `gorm:"column:step"`
	Required     bool       `gorm:"column:required;not null"`
	AutoApproved bool       `gorm:"column:auto_approved;not null;default:false"`
}

func (ExpenseApproval) TableName() string {
	return "expense_approvals"
}
