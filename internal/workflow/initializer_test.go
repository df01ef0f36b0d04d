package workflow_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/expense-approval/internal/core/role"
	"github.com/frahmantamala/expense-approval/internal/rule"
	"github.com/frahmantamala/expense-approval/internal/workflow"
)

type fakeDirectory struct {
	users map[int64]workflow.Approver
	err   error
}

func (f *fakeDirectory) GetApprover(_ context.Context, id int64) (*workflow.Approver, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeDirectory) FirstWithRole(_ context.Context, companyID int64, r role.Role, excludeID int64) (*workflow.Approver, error) {
	if f.err != nil {
		return nil, f.err
	}
	ids := make([]int64, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		u := f.users[id]
		if u.CompanyID == companyID && u.Role == r && id != excludeID {
			return &u, nil
		}
	}
	return nil, nil
}

var _ = Describe("Initializer", func() {
	var (
		ctx         context.Context
		dir         *fakeDirectory
		initializer *workflow.Initializer
		logs        *bytes.Buffer
		submitter   workflow.Submitter
	)

	BeforeEach(func() {
		ctx = context.Background()
		logs = &bytes.Buffer{}
		dir = &fakeDirectory{users: map[int64]workflow.Approver{
			2:  {ID: 2, CompanyID: 1, Role: role.Manager},
			3:  {ID: 3, CompanyID: 1, Role: role.Manager},
			5:  {ID: 5, CompanyID: 1, Role: role.Finance},
			4:  {ID: 4, CompanyID: 1, Role: role.Finance},
			7:  {ID: 7, CompanyID: 1, Role: role.CFO},
			99: {ID: 99, CompanyID: 2, Role: role.Director},
		}}
		initializer = workflow.NewInitializer(dir, slog.New(slog.NewTextHandler(logs, nil)))
		submitter = workflow.Submitter{ID: 1, CompanyID: 1, ManagerID: ptr(int64(3))}
	})

	newRule := func(steps ...rule.Step) *rule.Rule {
		return &rule.Rule{ID: 11, CompanyID: 1, Name: "r", Sequence: steps, Active: true}
	}

	It("builds slots in step order with lowest-id tie-break", func() {
		r := newRule(
			rule.Step{Step: 3, ApproverRole: role.CFO, Required: true},
			rule.Step{Step: 2, ApproverRole: role.Finance, Required: false},
		)
		approvals, err := initializer.Initialize(ctx, submitter, r)
		Expect(err).NotTo(HaveOccurred())
		Expect(approvals).To(HaveLen(2))

		Expect(approvals[0].ApproverID).To(Equal(int64(4)))
		Expect(*approvals[0].Step).To(Equal(2))
		Expect(approvals[0].Required).To(BeFalse())
		Expect(approvals[0].ApproverRole).To(Equal(role.Finance))

		Expect(approvals[1].ApproverID).To(Equal(int64(7)))
		for _, a := range approvals {
			Expect(a.IsPending()).To(BeTrue())
			Expect(a.DecisionDate).To(BeNil())
		}
	})

	It("binds a Manager step to the direct manager", func() {
		approvals, err := initializer.Initialize(ctx, submitter, newRule(rule.Step{Step: 1, ApproverRole: role.Manager, Required: true}))
		Expect(err).NotTo(HaveOccurred())
		Expect(approvals).To(HaveLen(1))
		Expect(approvals[0].ApproverID).To(Equal(int64(3)))
	})

	It("snapshots the direct manager's actual role", func() {
		submitter.ManagerID = ptr(int64(7))
		approvals, err := initializer.Initialize(ctx, submitter, newRule(rule.Step{Step: 1, ApproverRole: role.Manager, Required: true}))
		Expect(err).NotTo(HaveOccurred())
		Expect(approvals[0].ApproverRole).To(Equal(role.CFO))
	})

	It("falls back to role lookup when the manager is gone or foreign", func() {
		submitter.ManagerID = ptr(int64(99))
		approvals, err := initializer.Initialize(ctx, submitter, newRule(rule.Step{Step: 1, ApproverRole: role.Manager, Required: true}))
		Expect(err).NotTo(HaveOccurred())
		Expect(approvals[0].ApproverID).To(Equal(int64(2)))
	})

	It("skips unresolvable steps and logs them", func() {
		approvals, err := initializer.Initialize(ctx, submitter, newRule(
			rule.Step{Step: 1, ApproverRole: role.Director, Required: true},
			rule.Step{Step: 2, ApproverRole: role.CFO, Required: true},
		))
		Expect(err).NotTo(HaveOccurred())
		Expect(approvals).To(HaveLen(1))
		Expect(approvals[0].ApproverID).To(Equal(int64(7)))
		Expect(logs.String()).To(ContainSubstring("approval step skipped"))
	})

	It("keeps one slot per approver and keeps it required", func() {
		submitter.ManagerID = ptr(int64(7))
		approvals, err := initializer.Initialize(ctx, submitter, newRule(
			rule.Step{Step: 1, ApproverRole: role.Manager, Required: false},
			rule.Step{Step: 2, ApproverRole: role.CFO, Required: true},
		))
		Expect(err).NotTo(HaveOccurred())
		Expect(approvals).To(HaveLen(1))
		Expect(approvals[0].ApproverID).To(Equal(int64(7)))
		Expect(*approvals[0].Step).To(Equal(1))
		Expect(approvals[0].Required).To(BeTrue())
	})

	It("never assigns the submitter to their own expense", func() {
		submitter = workflow.Submitter{ID: 4, CompanyID: 1}
		approvals, err := initializer.Initialize(ctx, submitter, newRule(rule.Step{Step: 1, ApproverRole: role.Finance, Required: true}))
		Expect(err).NotTo(HaveOccurred())
		Expect(approvals[0].ApproverID).To(Equal(int64(5)))
	})

	Describe("default sequence", func() {
		It("uses the direct manager", func() {
			approvals, err := initializer.Initialize(ctx, submitter, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(approvals).To(HaveLen(1))
			Expect(approvals[0].ApproverID).To(Equal(int64(3)))
			Expect(approvals[0].Step).To(BeNil())
			Expect(approvals[0].Required).To(BeTrue())
		})

		It("uses the first Manager without a direct manager", func() {
			submitter.ManagerID = nil
			approvals, err := initializer.Initialize(ctx, submitter, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(approvals).To(HaveLen(1))
			Expect(approvals[0].ApproverID).To(Equal(int64(2)))
		})

		It("creates nothing when no manager exists", func() {
			submitter = workflow.Submitter{ID: 50, CompanyID: 2}
			approvals, err := initializer.Initialize(ctx, submitter, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(approvals).To(BeEmpty())
			Expect(logs.String()).To(ContainSubstring("no approval rule and no manager"))
		})
	})

	It("propagates directory failures", func() {
		dir.err = errors.New("db down")
		_, err := initializer.Initialize(ctx, submitter, newRule(rule.Step{Step: 1, ApproverRole: role.Finance, Required: true}))
		Expect(err).To(MatchError(ContainSubstring("db down")))
	})
})
