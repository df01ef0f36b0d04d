package rule_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/frahmantamala/expense-approval/internal"
	ruleDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/rule"
	"github.com/frahmantamala/expense-approval/internal/rule"
)

// MockRepository keeps rules in memory.
type MockRepository struct {
	rules     map[int64]*ruleDatamodel.ApprovalRule
	nextID    int64
	failError error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{rules: make(map[int64]*ruleDatamodel.ApprovalRule)}
}

func (m *MockRepository) Create(_ context.Context, r *ruleDatamodel.ApprovalRule) error {
	if m.failError != nil {
		return m.failError
	}
	m.nextID++
	r.ID = m.nextID
	m.rules[r.ID] = r
	return nil
}

func (m *MockRepository) ListByCompany(_ context.Context, companyID int64, activeOnly bool) ([]*ruleDatamodel.ApprovalRule, error) {
	if m.failError != nil {
		return nil, m.failError
	}
	var out []*ruleDatamodel.ApprovalRule
	for _, r := range m.rules {
		if r.CompanyID != companyID || r.DeletedAt.Valid || (activeOnly && !r.Active) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockRepository) GetByID(_ context.Context, companyID, id int64) (*ruleDatamodel.ApprovalRule, error) {
	r, ok := m.rules[id]
	if !ok || r.CompanyID != companyID || r.DeletedAt.Valid {
		return nil, m.failError
	}
	return r, nil
}

func (m *MockRepository) GetSnapshot(_ context.Context, id int64) (*ruleDatamodel.ApprovalRule, error) {
	return m.rules[id], m.failError
}

func (m *MockRepository) Delete(_ context.Context, companyID, id int64) (bool, error) {
	r, ok := m.rules[id]
	if !ok || r.CompanyID != companyID || r.DeletedAt.Valid {
		return false, m.failError
	}
	r.DeletedAt = gorm.DeletedAt{Valid: true}
	return true, nil
}

type stubMembers map[int64]int64

func (s stubMembers) IsMember(_ context.Context, userID, companyID int64) (bool, error) {
	return s[userID] == companyID, nil
}

var _ = Describe("Rule Service", func() {
	var (
		ctx     context.Context
		repo    *MockRepository
		service *rule.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = NewMockRepository()
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = rule.NewService(repo, stubMembers{10: 1, 20: 2}, slogger)
	})

	create := func(companyID int64, name string, threshold int64) *rule.Rule {
		t := decimal.NewFromInt(threshold)
		r, err := service.Create(ctx, companyID, rule.CreateRuleDTO{
			Name:            name,
			Sequence:        []rule.StepDTO{{Step: 1, ApproverRole: "Manager"}},
			AmountThreshold: &t,
		})
		Expect(err).NotTo(HaveOccurred())
		return r
	}

	Describe("Create", func() {
		It("stores a valid rule", func() {
			r := create(1, "small", 0)
			Expect(r.ID).To(BeNumerically(">", 0))
			Expect(r.Sequence).To(HaveLen(1))
			Expect(r.Sequence[0].Required).To(BeTrue())
		})

		It("rejects an invalid rule with field details", func() {
			_, err := service.Create(ctx, 1, rule.CreateRuleDTO{Name: "broken", Sequence: []rule.StepDTO{{Step: 1, ApproverRole: "Janitor"}}})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidRule))
			Expect(appErr.StatusCode).To(Equal(400))
		})

		It("rejects a specific approver from another company", func() {
			_, err := service.Create(ctx, 1, rule.CreateRuleDTO{Name: "cfo", SpecificApproverID: ptr(int64(20))})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidRule))

			_, err = service.Create(ctx, 1, rule.CreateRuleDTO{Name: "cfo", SpecificApproverID: ptr(int64(10))})
			Expect(err).NotTo(HaveOccurred())
		})

		It("wraps repository failures", func() {
			repo.failError = errors.New("db down")
			_, err := service.Create(ctx, 1, rule.CreateRuleDTO{Name: "x", Sequence: []rule.StepDTO{{Step: 1, ApproverRole: "CFO"}}})
			Expect(err).To(MatchError(ContainSubstring("db down")))
		})
	})

	Describe("SelectRule", func() {
		It("selects by threshold within the company only", func() {
			low := create(1, "low", 0)
			high := create(1, "high", 1000)
			create(2, "other", 50)

			got, err := service.SelectRule(ctx, 1, decimal.NewFromInt(1500))
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(high.ID))

			got, err = service.SelectRule(ctx, 1, decimal.NewFromInt(20))
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(low.ID))
		})

		It("returns nil when the company has no rules", func() {
			got, err := service.SelectRule(ctx, 3, decimal.NewFromInt(20))
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
		})
	})

	Describe("Delete", func() {
		It("stops selecting a deleted rule but keeps its snapshot", func() {
			r := create(1, "only", 0)
			Expect(service.Delete(ctx, 1, r.ID)).To(Succeed())

			got, err := service.SelectRule(ctx, 1, decimal.NewFromInt(20))
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())

			snap, err := service.GetSnapshot(ctx, r.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Name).To(Equal("only"))

			_, err = service.Get(ctx, 1, r.ID)
			Expect(err).To(MatchError(internal.ErrRuleNotFound))
		})

		It("does not delete another company's rule", func() {
			r := create(2, "theirs", 0)
			Expect(service.Delete(ctx, 1, r.ID)).To(MatchError(internal.ErrRuleNotFound))
		})
	})
})
