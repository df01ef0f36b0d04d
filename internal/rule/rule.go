package rule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
	ruleDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/rule"
	"github.com/frahmantamala/expense-approval/internal/core/role"
)

// Step is one position of an approval sequence.
type Step struct {
	Step         int       `json:"step"`
	ApproverRole role.Role `json:"approver_role"`
	Required     bool      `json:"required"`
}

// Rule is a company's approval policy. Rules are never edited in place, so an
// expense that references a rule id always sees the policy it was submitted under.
type Rule struct {
	ID                 int64
	CompanyID          int64
	Name               string
	Sequence           []Step
	PercentageRule     *int
	SpecificApproverID *int64
	// Hybrid is stored and echoed back but has no effect on evaluation.
	Hybrid          bool
	AmountThreshold decimal.Decimal
	Active          bool
	CreatedAt       time.Time
	Deleted         bool
}

// OrderedSteps returns the sequence sorted by ascending step number.
func (r *Rule) OrderedSteps() []Step {
	steps := make([]Step, len(r.Sequence))
	copy(steps, r.Sequence)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Step < steps[j].Step })
	return steps
}

func (r *Rule) HasPercentage() bool {
	return r != nil && r.PercentageRule != nil
}

// Validate checks the structural invariants of a rule before it is stored.
func (r *Rule) Validate() *errors.AppError {
	v := validation.NewValidator(errors.ErrCodeInvalidRule)

	v.Field("name", strings.TrimSpace(r.Name)).Required().MaxLength(120)
	v.Field("percentage_rule", r.PercentageRule).Range(1, 100)
	v.Field("amount_threshold", r.AmountThreshold).NonNegative(errors.ErrCodeInvalidRule)
	v.Field("specific_approver_id", r.SpecificApproverID).Custom(func(value interface{}) bool {
		id, _ := value.(*int64)
		return id == nil || *id > 0
	}, "specific_approver_id must be a positive id")
	v.Field("sequence", r.Sequence).Custom(func(interface{}) bool {
		return len(r.Sequence) > 0 || r.SpecificApproverID != nil
	}, "sequence must contain at least one step unless a specific approver is set")

	counts := make(map[int]int, len(r.Sequence))
	for _, s := range r.Sequence {
		counts[s.Step]++
	}
	for i, s := range r.Sequence {
		field := fmt.Sprintf("sequence[%d]", i)
		step := s
		v.Field(field+".step", step.Step).
			Custom(func(interface{}) bool { return step.Step >= 1 }, "step must be 1 or greater").
			Custom(func(interface{}) bool { return step.Step < 1 || counts[step.Step] == 1 }, fmt.Sprintf("step %d is used more than once", step.Step))
		v.Field(field+".approver_role", step.ApproverRole).
			Custom(func(interface{}) bool { return step.ApproverRole.Valid() }, fmt.Sprintf("approver_role %q is not a known role", step.ApproverRole))
	}

	return v.Validate()
}

// Select picks the rule governing amount: the active rule with the highest
// threshold not above amount, else the lowest-threshold rule. Equal thresholds
// resolve to the lowest id. Returns nil when no active rule exists.
func Select(rules []*Rule, amount decimal.Decimal) *Rule {
	active := make([]*Rule, 0, len(rules))
	for _, r := range rules {
		if r != nil && r.Active && !r.Deleted {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return nil
	}

	sort.SliceStable(active, func(i, j int) bool {
		if c := active[i].AmountThreshold.Cmp(active[j].AmountThreshold); c != 0 {
			return c > 0
		}
		return active[i].ID < active[j].ID
	})

	for _, r := range active {
		if r.AmountThreshold.LessThanOrEqual(amount) {
			return r
		}
	}

	lowest := active[len(active)-1]
	for _, r := range active {
		if r.AmountThreshold.Equal(lowest.AmountThreshold) {
			return r
		}
	}
	return lowest
}

func ToDataModel(r *Rule) *ruleDatamodel.ApprovalRule {
	steps := make([]ruleDatamodel.ApprovalRuleStep, 0, len(r.Sequence))
	for _, s := range r.OrderedSteps() {
		steps = append(steps, ruleDatamodel.ApprovalRuleStep{
			RuleID:       r.ID,
			Step:         s.Step,
			ApproverRole: string(s.ApproverRole),
			Required:     s.Required,
		})
	}
	return &ruleDatamodel.ApprovalRule{
		ID:                 r.ID,
		CompanyID:          r.CompanyID,
		Name:               strings.TrimSpace(r.Name),
		PercentageRule:     r.PercentageRule,
		SpecificApproverID: r.SpecificApproverID,
		Hybrid:             r.Hybrid,
		AmountThreshold:    r.AmountThreshold,
		Active:             r.Active,
		Steps:              steps,
		CreatedAt:          r.CreatedAt,
	}
}

func FromDataModel(m *ruleDatamodel.ApprovalRule) *Rule {
	seq := make([]Step, 0, len(m.Steps))
	for _, s := range m.Steps {
		seq = append(seq, Step{
			Step:         s.Step,
			ApproverRole: role.Role(s.ApproverRole),
			Required:     s.Required,
		})
	}
	r := &Rule{
		ID:                 m.ID,
		CompanyID:          m.CompanyID,
		Name:               m.Name,
		PercentageRule:     m.PercentageRule,
		SpecificApproverID: m.SpecificApproverID,
		Hybrid:             m.Hybrid,
		AmountThreshold:    m.AmountThreshold,
		Active:             m.Active,
		CreatedAt:          m.CreatedAt,
		Deleted:            m.DeletedAt.Valid,
	}
	r.Sequence = seq
	r.Sequence = r.OrderedSteps()
	return r
}

func FromDataModelSlice(models []*ruleDatamodel.ApprovalRule) []*Rule {
	rules := make([]*Rule, 0, len(models))
	for _, m := range models {
		rules = append(rules, FromDataModel(m))
	}
	return rules
}
