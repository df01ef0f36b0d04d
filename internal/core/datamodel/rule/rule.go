package rule

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ApprovalRule struct {
	ID                 int64              `gorm:"primaryKey"`
	CompanyID          int64              `gorm:"column:company_id;not null;index"`
	Name               string             `gorm:"column:name;not null"`
	PercentageRule     *int               `gorm:"column:percentage_rule"`
	SpecificApproverID *int64             `gorm:"column:specific_approver_id"`
	Hybrid             bool               `gorm:"column:hybrid;not null"`
	AmountThreshold    decimal.Decimal    `gorm:"column:amount_threshold;type:decimal(14,2);not null"`
	Active             bool               `gorm:"column:active;not null"`
	Steps              []ApprovalRuleStep `gorm:"foreignKey:RuleID"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt          gorm.DeletedAt     `gorm:"column:deleted_at;index"`
}

func (ApprovalRule) TableName() string {
	return "approval_rules"
}

type ApprovalRuleStep struct {
	ID           int64  `gorm:"primaryKey"`
	RuleID       int64  `gorm:"column:rule_id;not null;index"`
	Step         int    `gorm:"column:step;not null"`
	ApproverRole string `gorm:"column:approver_role;not null"`
	Required     bool   `gorm:"column:required;not null"`
}

func (ApprovalRuleStep) TableName() string {
	return "approval_rule_steps"
}
