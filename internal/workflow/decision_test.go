package workflow_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/role"
	"github.com/frahmantamala/expense-approval/internal/workflow"
)

var _ = Describe("ApplyDecision", func() {
	var (
		now       time.Time
		approvals []workflow.Approval
	)

	BeforeEach(func() {
		now = time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC)
		approvals = []workflow.Approval{
			{ApproverID: 10, ApproverRole: role.Manager, Decision: workflow.DecisionPending, Step: ptr(1), Required: true},
			{ApproverID: 20, ApproverRole: role.CFO, Decision: workflow.DecisionPending, Step: ptr(2), Required: true},
		}
	})

	It("records a decision on the approver's pending slot", func() {
		out, err := workflow.ApplyDecision(workflow.StatusPending, approvals, workflow.DecisionInput{
			ApproverID: 10, ApproverRole: role.Manager, Decision: workflow.DecisionApproved, Comments: "ok",
		}, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(2))
		Expect(out[0].Decision).To(Equal(workflow.DecisionApproved))
		Expect(out[0].Comments).To(Equal("ok"))
		Expect(*out[0].DecisionDate).To(Equal(now))
		Expect(out[1].IsPending()).To(BeTrue())
	})

	It("never overwrites an earlier decision", func() {
		out, err := workflow.ApplyDecision(workflow.StatusPending, approvals, workflow.DecisionInput{
			ApproverID: 10, ApproverRole: role.Manager, Decision: workflow.DecisionApproved,
		}, now)
		Expect(err).NotTo(HaveOccurred())

		out, err = workflow.ApplyDecision(workflow.StatusPending, out, workflow.DecisionInput{
			ApproverID: 10, ApproverRole: role.Manager, Decision: workflow.DecisionRejected,
		}, now.Add(time.Hour))
		Expect(err).To(MatchError(internal.ErrAlreadyDecided))
		Expect(out).To(HaveLen(2))
		Expect(out[0].Decision).To(Equal(workflow.DecisionApproved))
		Expect(*out[0].DecisionDate).To(Equal(now))
	})

	It("adds an ad-hoc slot for an approver-role user", func() {
		out, err := workflow.ApplyDecision(workflow.StatusPending, approvals, workflow.DecisionInput{
			ApproverID: 30, ApproverRole: role.Director, Decision: workflow.DecisionApproved,
		}, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(3))
		Expect(out[2].ApproverID).To(Equal(int64(30)))
		Expect(out[2].ApproverRole).To(Equal(role.Director))
		Expect(out[2].Step).To(BeNil())
		Expect(out[2].Required).To(BeTrue())
		Expect(out[2].Decision).To(Equal(workflow.DecisionApproved))
	})

	It("refuses employees without a slot", func() {
		out, err := workflow.ApplyDecision(workflow.StatusPending, approvals, workflow.DecisionInput{
			ApproverID: 40, ApproverRole: role.Employee, Decision: workflow.DecisionApproved,
		}, now)
		Expect(err).To(MatchError(internal.ErrNotAuthorized))
		Expect(out).To(HaveLen(2))
	})

	It("refuses decisions outside Approved and Rejected", func() {
		for _, d := range []workflow.Decision{workflow.DecisionPending, "Maybe", ""} {
			_, err := workflow.ApplyDecision(workflow.StatusPending, approvals, workflow.DecisionInput{
				ApproverID: 10, ApproverRole: role.Manager, Decision: d,
			}, now)
			Expect(err).To(MatchError(internal.ErrInvalidDecision))
		}
		Expect(approvals[0].IsPending()).To(BeTrue())
	})

	It("refuses decisions on resolved expenses", func() {
		for _, s := range []workflow.Status{workflow.StatusApproved, workflow.StatusRejected} {
			_, err := workflow.ApplyDecision(s, approvals, workflow.DecisionInput{
				ApproverID: 10, ApproverRole: role.Manager, Decision: workflow.DecisionApproved,
			}, now)
			Expect(err).To(MatchError(internal.ErrExpenseResolved))
		}
	})

	It("walks the hierarchy scenario to Approved", func() {
		approvals = []workflow.Approval{
			{ApproverID: 10, ApproverRole: role.Manager, Decision: workflow.DecisionApproved, DecisionDate: &now, Required: true},
			{ApproverID: 20, ApproverRole: role.Finance, Decision: workflow.DecisionPending, Required: true},
			{ApproverID: 30, ApproverRole: role.Admin, Decision: workflow.DecisionPending, Required: true},
		}
		out, err := workflow.ApplyDecision(workflow.StatusPending, approvals, workflow.DecisionInput{
			ApproverID: 30, ApproverRole: role.Admin, Decision: workflow.DecisionApproved,
		}, now)
		Expect(err).NotTo(HaveOccurred())

		res := workflow.Resolve(out, nil, now)
		Expect(res.Status).To(Equal(workflow.StatusApproved))
		for _, a := range res.Approvals {
			Expect(a.Decision).To(Equal(workflow.DecisionApproved))
			Expect(a.DecisionDate).NotTo(BeNil())
		}
	})
})
