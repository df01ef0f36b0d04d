package user

import (
	"context"

	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-approval/internal/core/role"
	"github.com/frahmantamala/expense-approval/internal/workflow"
)

// ApproverDirectory exposes users to the approval engine.
type ApproverDirectory struct {
	repo Repository
}

func NewApproverDirectory(repo Repository) *ApproverDirectory {
	return &ApproverDirectory{repo: repo}
}

func toApprover(m *userDatamodel.User) *workflow.Approver {
	return &workflow.Approver{ID: m.ID, CompanyID: m.CompanyID, Role: role.Role(m.Role)}
}

func (d *ApproverDirectory) GetApprover(ctx context.Context, id int64) (*workflow.Approver, error) {
	m, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.IsActive {
		return nil, nil
	}
	return toApprover(m), nil
}

func (d *ApproverDirectory) FirstWithRole(ctx context.Context, companyID int64, r role.Role, excludeID int64) (*workflow.Approver, error) {
	m, err := d.repo.FirstActiveWithRole(ctx, companyID, string(r), excludeID)
	if err != nil || m == nil {
		return nil, err
	}
	return toApprover(m), nil
}
