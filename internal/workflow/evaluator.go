package workflow

import (
	"fmt"
	"time"

	"github.com/frahmantamala/expense-approval/internal/core/role"
	"github.com/frahmantamala/expense-approval/internal/rule"
)

// Evaluate computes the expense status from its approval slots and the rule it
// was submitted under (nil for the default sequence). Pending slots below the
// most senior approval are auto-approved in place.
//
// Order: rejection, specific approver, hierarchy, percentage, then Pending.
// Under a percentage rule a rejection is weighed by the percentage math
// instead of closing the expense on its own, and while any slot is rejected
// the hierarchy pass is suspended so a senior approval cannot outvote it.
// Slots whose role snapshot is unknown take no part in hierarchy or
// percentage math.
func Evaluate(approvals []Approval, r *rule.Rule, at time.Time) Status {
	rejected := anyRejected(approvals)
	if !r.HasPercentage() && rejected {
		return StatusRejected
	}

	if r != nil && r.SpecificApproverID != nil {
		if slot, ok := FindSlot(approvals, *r.SpecificApproverID); ok {
			switch slot.Decision {
			case DecisionApproved:
				return StatusApproved
			case DecisionRejected:
				return StatusRejected
			}
		}
	}

	if !rejected {
		if top, ok := seniorApproval(approvals); ok {
			subsume(approvals, top, at)
			if top.ApproverRole == role.CFO || top.ApproverRole == role.Admin {
				return StatusApproved
			}
		}
	}

	if r.HasPercentage() {
		if status, ok := percentage(approvals, *r.PercentageRule, len(r.Sequence) > 0); ok {
			return status
		}
	}

	return StatusPending
}

func anyRejected(approvals []Approval) bool {
	for _, a := range approvals {
		if a.Decision == DecisionRejected {
			return true
		}
	}
	return false
}

// seniorApproval returns a copy of the explicitly Approved slot with the
// highest role level; the first such slot wins ties.
func seniorApproval(approvals []Approval) (Approval, bool) {
	var (
		top   Approval
		found bool
	)
	for _, a := range approvals {
		if a.Decision != DecisionApproved || a.AutoApproved || !a.ApproverRole.Valid() {
			continue
		}
		if !found || a.ApproverRole.Outranks(top.ApproverRole) {
			top, found = a, true
		}
	}
	return top, found
}

func subsume(approvals []Approval, top Approval, at time.Time) {
	comment := fmt.Sprintf("Auto-approved: superseded by %s approval from user %d", top.ApproverRole, top.ApproverID)
	for i := range approvals {
		a := &approvals[i]
		if !a.IsPending() || a.ApproverID == top.ApproverID {
			continue
		}
		if top.ApproverRole.Outranks(a.ApproverRole) {
			a.decide(DecisionApproved, comment, at)
			a.AutoApproved = true
		}
	}
}

// percentage weighs explicit decisions only. Hierarchy auto-approvals stay in
// the denominator but never count as approvals. When the rule has a sequence,
// ad-hoc slots (no step) are left out so a self-inserted approver cannot move
// the threshold for the sequenced ones.
func percentage(approvals []Approval, threshold int, sequencedOnly bool) (Status, bool) {
	var total, approved, rejected int
	for _, a := range approvals {
		if !a.ApproverRole.Valid() {
			continue
		}
		if sequencedOnly && a.Step == nil {
			continue
		}
		total++
		switch {
		case a.Decision == DecisionApproved && !a.AutoApproved:
			approved++
		case a.Decision == DecisionRejected:
			rejected++
		}
	}
	if total == 0 {
		return "", false
	}

	if approved > 0 && approved*100 >= threshold*total {
		return StatusApproved, true
	}
	if rejected > 0 && rejected*100 >= (100-threshold)*total {
		return StatusRejected, true
	}
	return "", false
}

// Resolve evaluates and packages the result for callers.
func Resolve(approvals []Approval, r *rule.Rule, at time.Time) Resolution {
	return Resolution{Status: Evaluate(approvals, r, at), Approvals: approvals}
}
