package rule

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/expense-approval/internal/core/role"
)

type StepDTO struct {
	Step         int    `json:"step" validate:"required,min=1"`
	ApproverRole string `json:"approver_role" validate:"required"`
	Required     *bool  `json:"required,omitempty"`
}

type CreateRuleDTO struct {
	Name               string           `json:"name" validate:"required,max=120"`
	Sequence           []StepDTO        `json:"sequence" validate:"dive"`
	PercentageRule     *int             `json:"percentage_rule,omitempty" validate:"omitempty,min=1,max=100"`
	SpecificApproverID *int64           `json:"specific_approver_id,omitempty" validate:"omitempty,min=1"`
	Hybrid             bool             `json:"hybrid"`
	AmountThreshold    *decimal.Decimal `json:"amount_threshold,omitempty"`
	Active             *bool            `json:"active,omitempty"`
}

// ToRule applies the documented defaults: required steps, zero threshold, active.
func (d CreateRuleDTO) ToRule(companyID int64) *Rule {
	seq := make([]Step, 0, len(d.Sequence))
	for _, s := range d.Sequence {
		required := true
		if s.Required != nil {
			required = *s.Required
		}
		r, ok := role.Parse(s.ApproverRole)
		if !ok {
			r = role.Role(s.ApproverRole)
		}
		seq = append(seq, Step{Step: s.Step, ApproverRole: r, Required: required})
	}

	threshold := decimal.Zero
	if d.AmountThreshold != nil {
		threshold = *d.AmountThreshold
	}
	active := true
	if d.Active != nil {
		active = *d.Active
	}

	return &Rule{
		CompanyID:          companyID,
		Name:               d.Name,
		Sequence:           seq,
		PercentageRule:     d.PercentageRule,
		SpecificApproverID: d.SpecificApproverID,
		Hybrid:             d.Hybrid,
		AmountThreshold:    threshold,
		Active:             active,
	}
}

type RuleResponse struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	Sequence           []Step          `json:"sequence"`
	PercentageRule     *int            `json:"percentage_rule,omitempty"`
	SpecificApproverID *int64          `json:"specific_approver_id,omitempty"`
	Hybrid             bool            `json:"hybrid"`
	AmountThreshold    decimal.Decimal `json:"amount_threshold"`
	Active             bool            `json:"active"`
	CreatedAt          time.Time       `json:"created_at"`
}

type RulesResponse struct {
	Rules []RuleResponse `json:"rules"`
}

func (r *Rule) ToResponse() RuleResponse {
	return RuleResponse{
		ID:                 r.ID,
		Name:               r.Name,
		Sequence:           r.OrderedSteps(),
		PercentageRule:     r.PercentageRule,
		SpecificApproverID: r.SpecificApproverID,
		Hybrid:             r.Hybrid,
		AmountThreshold:    r.AmountThreshold,
		Active:             r.Active,
		CreatedAt:          r.CreatedAt,
	}
}
