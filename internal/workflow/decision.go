package workflow

import (
	"time"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/role"
)

// DecisionInput is one approver's verdict on an expense.
type DecisionInput struct {
	ApproverID   int64
	ApproverRole role.Role
	Decision     Decision
	Comments     string
}

// ApplyDecision records in against the approval slots of an expense in status.
// A pending slot of the approver is resolved; a decided slot is never
// overwritten; an approver-role user without a slot gets an ad-hoc one.
// The returned slice may be longer than approvals.
func ApplyDecision(status Status, approvals []Approval, in DecisionInput, at time.Time) ([]Approval, error) {
	if _, ok := ParseDecision(string(in.Decision)); !ok {
		return approvals, errors.ErrInvalidDecision
	}
	if status.IsTerminal() {
		return approvals, errors.ErrExpenseResolved
	}

	for i := range approvals {
		if approvals[i].ApproverID != in.ApproverID {
			continue
		}
		if !approvals[i].IsPending() {
			return approvals, errors.ErrAlreadyDecided
		}
		approvals[i].decide(in.Decision, in.Comments, at)
		return approvals, nil
	}

	if !in.ApproverRole.CanApprove() {
		return approvals, errors.ErrNotAuthorized
	}

	adHoc := Approval{
		ApproverID:   in.ApproverID,
		ApproverRole: in.ApproverRole,
		Required:     true,
	}
	adHoc.decide(in.Decision, in.Comments, at)
	return append(approvals, adHoc), nil
}

// FindSlot returns the approver's slot, if any.
func FindSlot(approvals []Approval, approverID int64) (*Approval, bool) {
	for i := range approvals {
		if approvals[i].ApproverID == approverID {
			return &approvals[i], true
		}
	}
	return nil, false
}
