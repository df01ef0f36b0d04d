// Package workflow holds the approval engine: building an expense's approval
// slots from a rule, recording approver decisions and resolving the overall
// status. It does no I/O beyond the Directory lookups used at submission.
package workflow

import (
	"context"
	"time"

	"github.com/frahmantamala/expense-approval/internal/core/role"
)

type Decision string

const (
	DecisionPending  Decision = "Pending"
	DecisionApproved Decision = "Approved"
	DecisionRejected Decision = "Rejected"
)

// ParseDecision accepts only the two final decisions an approver may submit.
func ParseDecision(s string) (Decision, bool) {
	switch Decision(s) {
	case DecisionApproved, DecisionRejected:
		return Decision(s), true
	}
	return "", false
}

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s Status) Valid() bool {
	return s == StatusPending || s.IsTerminal()
}

// Approval is one approver's slot on an expense. ApproverRole is captured when
// the slot is created so later role changes do not alter resolution.
// AutoApproved marks a slot approved by the hierarchy rather than its holder.
type Approval struct {
	ID           int64      `json:"-"`
	ApproverID   int64      `json:"approver_id"`
	ApproverRole role.Role  `json:"approver_role"`
	Decision     Decision   `json:"decision"`
	Comments     string     `json:"comments,omitempty"`
	DecisionDate *time.Time `json:"decision_date,omitempty"`
	Step         *int       `json:"step,omitempty"`
	Required     bool       `json:"required"`
	AutoApproved bool       `json:"auto_approved,omitempty"`
}

func (a *Approval) IsPending() bool {
	return a.Decision == DecisionPending
}

func (a *Approval) decide(d Decision, comments string, at time.Time) {
	a.Decision = d
	a.AutoApproved = false
	a.Comments = comments
	t := at
	a.DecisionDate = &t
}

// Approver is the directory view of a user who may hold a slot.
type Approver struct {
	ID        int64
	CompanyID int64
	Role      role.Role
}

// Submitter is the employee an approval sequence is built for.
type Submitter struct {
	ID        int64
	CompanyID int64
	ManagerID *int64
}

// Directory resolves approvers during sequence initialization.
type Directory interface {
	// GetApprover returns nil when the user does not exist.
	GetApprover(ctx context.Context, id int64) (*Approver, error)
	// FirstWithRole returns the lowest-id active user of the company holding r,
	// skipping excludeID, or nil when none exists.
	FirstWithRole(ctx context.Context, companyID int64, r role.Role, excludeID int64) (*Approver, error)
}

// Resolution is the evaluator's output for a set of approvals.
type Resolution struct {
	Status    Status     `json:"status"`
	Approvals []Approval `json:"approvals"`
}
