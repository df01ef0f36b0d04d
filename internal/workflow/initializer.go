package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/expense-approval/internal/core/role"
	"github.com/frahmantamala/expense-approval/internal/rule"
)

type Initializer struct {
	directory Directory
	logger    *slog.Logger
}

func NewInitializer(directory Directory, logger *slog.Logger) *Initializer {
	return &Initializer{
		directory: directory,
		logger:    logger,
	}
}

// Initialize builds the Pending approval slots for a new expense. A nil rule
// produces the default sequence: the submitter's manager, else the first
// Manager of the company. Steps nobody can fill are skipped and logged.
func (i *Initializer) Initialize(ctx context.Context, submitter Submitter, r *rule.Rule) ([]Approval, error) {
	if r == nil {
		return i.defaultSequence(ctx, submitter)
	}

	approvals := make([]Approval, 0, len(r.Sequence))
	index := make(map[int64]int, len(r.Sequence))

	for _, step := range r.OrderedSteps() {
		approver, err := i.resolveStep(ctx, submitter, step.ApproverRole)
		if err != nil {
			return nil, err
		}
		if approver == nil {
			i.logger.Warn("approval step skipped, no approver available",
				"rule_id", r.ID, "step", step.Step, "role", step.ApproverRole, "employee_id", submitter.ID)
			continue
		}

		if at, dup := index[approver.ID]; dup {
			// one slot per approver; a required later step keeps the slot required
			approvals[at].Required = approvals[at].Required || step.Required
			i.logger.Info("approval step merged into existing slot",
				"rule_id", r.ID, "step", step.Step, "approver_id", approver.ID)
			continue
		}

		n := step.Step
		index[approver.ID] = len(approvals)
		approvals = append(approvals, Approval{
			ApproverID:   approver.ID,
			ApproverRole: approver.Role,
			Decision:     DecisionPending,
			Step:         &n,
			Required:     step.Required,
		})
	}

	if len(approvals) == 0 {
		i.logger.Warn("approval rule produced no approvers, expense will wait for an ad-hoc decision",
			"rule_id", r.ID, "employee_id", submitter.ID)
	}
	return approvals, nil
}

func (i *Initializer) resolveStep(ctx context.Context, submitter Submitter, want role.Role) (*Approver, error) {
	if want == role.Manager && submitter.ManagerID != nil {
		manager, err := i.directory.GetApprover(ctx, *submitter.ManagerID)
		if err != nil {
			return nil, fmt.Errorf("lookup manager %d: %w", *submitter.ManagerID, err)
		}
		if manager != nil && manager.CompanyID == submitter.CompanyID {
			return manager, nil
		}
		i.logger.Warn("assigned manager unavailable, falling back to role lookup",
			"employee_id", submitter.ID, "manager_id", *submitter.ManagerID)
	}

	approver, err := i.directory.FirstWithRole(ctx, submitter.CompanyID, want, submitter.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup approver with role %s: %w", want, err)
	}
	return approver, nil
}

func (i *Initializer) defaultSequence(ctx context.Context, submitter Submitter) ([]Approval, error) {
	approver, err := i.resolveStep(ctx, submitter, role.Manager)
	if err != nil {
		return nil, err
	}
	if approver == nil {
		i.logger.Warn("no approval rule and no manager available, expense left without approvers",
			"employee_id", submitter.ID, "company_id", submitter.CompanyID)
		return []Approval{}, nil
	}

	return []Approval{{
		ApproverID:   approver.ID,
		ApproverRole: approver.Role,
		Decision:     DecisionPending,
		Required:     true,
	}}, nil
}
