package workflow_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/expense-approval/internal/core/role"
	"github.com/frahmantamala/expense-approval/internal/rule"
	"github.com/frahmantamala/expense-approval/internal/workflow"
)

func slot(id int64, r role.Role, d workflow.Decision) workflow.Approval {
	return workflow.Approval{ApproverID: id, ApproverRole: r, Decision: d, Required: true}
}

var _ = Describe("Evaluate", func() {
	var now time.Time

	BeforeEach(func() {
		now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	})

	It("stays Pending when nothing is decided", func() {
		approvals := []workflow.Approval{slot(1, role.Manager, workflow.DecisionPending)}
		Expect(workflow.Evaluate(approvals, nil, now)).To(Equal(workflow.StatusPending))
		Expect(workflow.Evaluate(nil, nil, now)).To(Equal(workflow.StatusPending))
	})

	Describe("rejection", func() {
		It("rejects on any rejection without a percentage rule", func() {
			approvals := []workflow.Approval{
				slot(1, role.Admin, workflow.DecisionApproved),
				slot(2, role.Manager, workflow.DecisionRejected),
			}
			Expect(workflow.Evaluate(approvals, &rule.Rule{}, now)).To(Equal(workflow.StatusRejected))
		})

		It("takes precedence over the hierarchy path", func() {
			approvals := []workflow.Approval{
				slot(1, role.Manager, workflow.DecisionRejected),
				slot(2, role.CFO, workflow.DecisionApproved),
			}
			Expect(workflow.Evaluate(approvals, nil, now)).To(Equal(workflow.StatusRejected))
		})
	})

	Describe("hierarchy", func() {
		It("subsumes lower pending approvals when Admin approves", func() {
			approvals := []workflow.Approval{
				slot(1, role.Manager, workflow.DecisionApproved),
				slot(2, role.Finance, workflow.DecisionPending),
				slot(3, role.Admin, workflow.DecisionApproved),
			}
			status := workflow.Evaluate(approvals, nil, now)

			Expect(status).To(Equal(workflow.StatusApproved))
			Expect(approvals[1].Decision).To(Equal(workflow.DecisionApproved))
			Expect(approvals[1].DecisionDate).To(Equal(&now))
			Expect(approvals[1].Comments).To(ContainSubstring("Admin"))
			Expect(approvals[1].AutoApproved).To(BeTrue())
			Expect(approvals[0].AutoApproved).To(BeFalse())
			Expect(approvals[0].DecisionDate).To(BeNil())
		})

		It("leaves equal and higher pending approvals alone", func() {
			approvals := []workflow.Approval{
				slot(1, role.Director, workflow.DecisionApproved),
				slot(2, role.Director, workflow.DecisionPending),
				slot(3, role.CFO, workflow.DecisionPending),
				slot(4, role.Manager, workflow.DecisionPending),
			}
			status := workflow.Evaluate(approvals, nil, now)

			Expect(status).To(Equal(workflow.StatusPending))
			Expect(approvals[1].IsPending()).To(BeTrue())
			Expect(approvals[2].IsPending()).To(BeTrue())
			Expect(approvals[3].Decision).To(Equal(workflow.DecisionApproved))
		})

		It("resolves on a CFO approval", func() {
			approvals := []workflow.Approval{slot(1, role.CFO, workflow.DecisionApproved)}
			Expect(workflow.Evaluate(approvals, nil, now)).To(Equal(workflow.StatusApproved))
		})

		It("keeps a Manager-only approval Pending", func() {
			r := &rule.Rule{Sequence: []rule.Step{{Step: 1, ApproverRole: role.Manager, Required: true}}}
			approvals := []workflow.Approval{slot(1, role.Manager, workflow.DecisionApproved)}
			Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusPending))
		})

		It("ignores slots with unknown role snapshots", func() {
			approvals := []workflow.Approval{
				slot(1, role.Role(""), workflow.DecisionApproved),
				slot(2, role.Manager, workflow.DecisionPending),
			}
			Expect(workflow.Evaluate(approvals, nil, now)).To(Equal(workflow.StatusPending))
			Expect(approvals[1].IsPending()).To(BeTrue())
		})
	})

	Describe("specific approver", func() {
		var r *rule.Rule

		BeforeEach(func() {
			r = &rule.Rule{SpecificApproverID: ptr(int64(9))}
		})

		It("approves on the specific approver's approval alone", func() {
			approvals := []workflow.Approval{
				slot(1, role.Manager, workflow.DecisionPending),
				slot(9, role.Finance, workflow.DecisionApproved),
			}
			Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusApproved))
			Expect(approvals[0].IsPending()).To(BeTrue())
		})

		It("rejects on the specific approver's rejection even under a percentage rule", func() {
			r.PercentageRule = ptr(10)
			approvals := []workflow.Approval{
				slot(1, role.Manager, workflow.DecisionApproved),
				slot(2, role.Manager, workflow.DecisionPending),
				slot(9, role.Finance, workflow.DecisionRejected),
			}
			Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusRejected))
		})
	})

	Describe("percentage", func() {
		var r *rule.Rule

		BeforeEach(func() {
			r = &rule.Rule{PercentageRule: ptr(60)}
		})

		finance := func(decisions ...workflow.Decision) []workflow.Approval {
			out := make([]workflow.Approval, 0, len(decisions))
			for i, d := range decisions {
				out = append(out, slot(int64(i+1), role.Finance, d))
			}
			return out
		}

		It("approves at exactly the threshold", func() {
			approvals := finance(workflow.DecisionApproved, workflow.DecisionApproved, workflow.DecisionApproved,
				workflow.DecisionPending, workflow.DecisionPending)
			Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusApproved))
		})

		It("stays Pending below both thresholds", func() {
			approvals := finance(workflow.DecisionApproved, workflow.DecisionApproved, workflow.DecisionRejected,
				workflow.DecisionPending, workflow.DecisionPending)
			Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusPending))
		})

		It("rejects once rejections reach the complement", func() {
			approvals := finance(workflow.DecisionRejected, workflow.DecisionRejected,
				workflow.DecisionPending, workflow.DecisionPending, workflow.DecisionPending)
			Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusRejected))
		})

		It("needs an actual rejection when the rule demands unanimity", func() {
			r.PercentageRule = ptr(100)
			approvals := finance(workflow.DecisionApproved, workflow.DecisionPending)
			Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusPending))

			approvals = finance(workflow.DecisionApproved, workflow.DecisionRejected)
			Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusRejected))

			approvals = finance(workflow.DecisionApproved, workflow.DecisionApproved)
			Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusApproved))
		})

		It("does not count hierarchy auto-approvals toward the threshold", func() {
			approvals := []workflow.Approval{
				slot(1, role.Director, workflow.DecisionApproved),
				slot(2, role.Manager, workflow.DecisionPending),
				slot(3, role.CFO, workflow.DecisionPending),
			}
			Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusPending))
			Expect(approvals[1].Decision).To(Equal(workflow.DecisionApproved))
			Expect(approvals[1].AutoApproved).To(BeTrue())

			// re-evaluating stored slots gives the same answer
			Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusPending))
		})

		It("keeps a unanimity rule open after a single Director approval", func() {
			r.PercentageRule = ptr(100)
			approvals := []workflow.Approval{
				slot(1, role.Manager, workflow.DecisionPending),
				slot(2, role.Finance, workflow.DecisionPending),
				slot(3, role.Director, workflow.DecisionApproved),
			}
			Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusPending))
			Expect(approvals[0].AutoApproved).To(BeTrue())
			Expect(approvals[1].AutoApproved).To(BeTrue())
		})

		It("counts the senior approver once they act themselves", func() {
			approvals := []workflow.Approval{
				slot(1, role.Manager, workflow.DecisionApproved),
				slot(2, role.Finance, workflow.DecisionPending),
				slot(3, role.Director, workflow.DecisionPending),
			}
			Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusPending))

			approvals, err := workflow.ApplyDecision(workflow.StatusPending, approvals, workflow.DecisionInput{
				ApproverID: 3, ApproverRole: role.Director, Decision: workflow.DecisionApproved,
			}, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusApproved))
			Expect(approvals[1].AutoApproved).To(BeTrue())
			Expect(approvals[2].AutoApproved).To(BeFalse())
		})

		It("does not let a senior approval override an outstanding rejection", func() {
			approvals := []workflow.Approval{
				slot(1, role.Manager, workflow.DecisionRejected),
				slot(2, role.Finance, workflow.DecisionPending),
				slot(3, role.CFO, workflow.DecisionApproved),
			}
			Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusPending))
			Expect(approvals[1].IsPending()).To(BeTrue())
		})

		It("still resolves by the percentage math while a rejection is outstanding", func() {
			approvals := finance(workflow.DecisionRejected, workflow.DecisionApproved, workflow.DecisionApproved,
				workflow.DecisionApproved, workflow.DecisionPending)
			Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusApproved))
		})

		Context("with a sequenced rule", func() {
			BeforeEach(func() {
				r.Sequence = []rule.Step{
					{Step: 1, ApproverRole: role.Finance, Required: true},
					{Step: 2, ApproverRole: role.Finance, Required: true},
				}
			})

			stepped := func(id int64, step int, d workflow.Decision) workflow.Approval {
				a := slot(id, role.Finance, d)
				a.Step = ptr(step)
				return a
			}

			It("leaves ad-hoc slots out of the denominator", func() {
				approvals := []workflow.Approval{
					stepped(1, 1, workflow.DecisionApproved),
					stepped(2, 2, workflow.DecisionPending),
					slot(3, role.Manager, workflow.DecisionApproved),
				}
				Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusPending))

				approvals[1].Decision = workflow.DecisionApproved
				Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusApproved))
			})

			It("ignores ad-hoc rejections in the percentage math", func() {
				approvals := []workflow.Approval{
					stepped(1, 1, workflow.DecisionApproved),
					stepped(2, 2, workflow.DecisionApproved),
					slot(3, role.Manager, workflow.DecisionRejected),
				}
				Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusApproved))
			})
		})

		It("leaves unknown roles out of the denominator", func() {
			approvals := finance(workflow.DecisionApproved, workflow.DecisionPending)
			approvals = append(approvals,
				slot(7, role.Role("Ghost"), workflow.DecisionPending),
				slot(8, role.Role("Ghost"), workflow.DecisionPending),
			)
			r.PercentageRule = ptr(50)
			Expect(workflow.Evaluate(approvals, r, now)).To(Equal(workflow.StatusApproved))
		})
	})
})
