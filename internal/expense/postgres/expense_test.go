package postgres_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	expenseDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-approval/internal/expense"
	expensePostgres "github.com/frahmantamala/expense-approval/internal/expense/postgres"
	"github.com/frahmantamala/expense-approval/internal/workflow"
)

func TestExpensePostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Expense Postgres Suite")
}

var _ = Describe("Expense PostgreSQL Repository", func() {
	var (
		ctx  context.Context
		repo expense.Repository
		page expense.ListFilter
		base time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		Expect(db.AutoMigrate(&expenseDatamodel.Expense{}, &expenseDatamodel.ExpenseApproval{})).To(Succeed())
		repo = expensePostgres.NewExpenseRepository(db)
		page = expense.ParseListFilter("", "", "")
		base = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	})

	seed := func(companyID, employeeID int64, offset time.Duration, approverIDs ...int64) *expenseDatamodel.Expense {
		e := &expenseDatamodel.Expense{
			CompanyID:         companyID,
			EmployeeID:        employeeID,
			OriginalAmount:    decimal.RequireFromString("42.10"),
			OriginalCurrency:  "USD",
			ConvertedAmount:   decimal.RequireFromString("42.10"),
			ConvertedCurrency: "USD",
			Category:          "Meals",
			Description:       "Lunch",
			ExpenseDate:       base.Truncate(24 * time.Hour),
			Status:            string(workflow.StatusPending),
			Version:           1,
			SubmittedAt:       base.Add(offset),
		}
		for _, id := range approverIDs {
			e.Approvals = append(e.Approvals, expenseDatamodel.ExpenseApproval{
				ApproverID:   id,
				ApproverRole: "Manager",
				Decision:     string(workflow.DecisionPending),
				Required:     true,
			})
		}
		Expect(repo.Create(ctx, e)).To(Succeed())
		return e
	}

	Describe("Create and GetByID", func() {
		It("stores the expense with its approval slots", func() {
			e := seed(1, 10, 0, 20, 30)
			Expect(e.ID).To(BeNumerically(">", 0))
			Expect(e.Approvals[0].ID).To(BeNumerically(">", 0))

			got, err := repo.GetByID(ctx, 1, e.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ConvertedAmount.StringFixed(2)).To(Equal("42.10"))
			Expect(got.Approvals).To(HaveLen(2))
			Expect(got.Approvals[0].ApproverID).To(Equal(int64(20)))
			Expect(got.Approvals[1].ApproverID).To(Equal(int64(30)))
		})

		It("returns nil for missing or foreign expenses", func() {
			e := seed(1, 10, 0)

			got, err := repo.GetByID(ctx, 2, e.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())

			got, err = repo.GetByID(ctx, 1, 999)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
		})
	})

	Describe("listings", func() {
		var older, newer *expenseDatamodel.Expense

		BeforeEach(func() {
			older = seed(1, 10, 0, 20)
			newer = seed(1, 10, time.Hour, 20, 30)
			seed(1, 11, 2*time.Hour, 30)
			seed(2, 10, 0, 20)
		})

		It("lists an employee's expenses newest first", func() {
			rows, err := repo.ListByEmployee(ctx, 1, 10, page)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))
			Expect(rows[0].ID).To(Equal(newer.ID))
			Expect(rows[1].ID).To(Equal(older.ID))
			Expect(rows[0].Approvals).To(HaveLen(2))
		})

		It("lists the whole company with paging and status filter", func() {
			rows, err := repo.ListByCompany(ctx, 1, page)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(3))

			rows, err = repo.ListByCompany(ctx, 1, expense.ParseListFilter("", "1", "1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].ID).To(Equal(newer.ID))

			rows, err = repo.ListByCompany(ctx, 1, expense.ParseListFilter("Approved", "", ""))
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(BeEmpty())
		})

		It("lists pending work for an approver oldest first", func() {
			rows, err := repo.ListPendingFor(ctx, 1, 20, page)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))
			Expect(rows[0].ID).To(Equal(older.ID))

			older.Approvals[0].Decision = string(workflow.DecisionApproved)
			ok, err := repo.Update(ctx, older, older.Version)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			rows, err = repo.ListPendingFor(ctx, 1, 20, page)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].ID).To(Equal(newer.ID))
		})
	})

	Describe("Update", func() {
		It("bumps the version and stores slots", func() {
			e := seed(1, 10, 0, 20)
			now := base.Add(time.Hour)
			e.Status = string(workflow.StatusApproved)
			e.ProcessedAt = &now
			e.Approvals[0].Decision = string(workflow.DecisionApproved)
			e.Approvals[0].AutoApproved = true
			e.Approvals = append(e.Approvals, expenseDatamodel.ExpenseApproval{
				ApproverID: 40, ApproverRole: "Admin", Decision: string(workflow.DecisionApproved), Required: true,
			})

			ok, err := repo.Update(ctx, e, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(e.Version).To(Equal(int64(2)))
			Expect(e.Approvals[1].ID).To(BeNumerically(">", 0))

			got, err := repo.GetByID(ctx, 1, e.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(string(workflow.StatusApproved)))
			Expect(got.Version).To(Equal(int64(2)))
			Expect(got.ProcessedAt).NotTo(BeNil())
			Expect(got.Approvals).To(HaveLen(2))
			Expect(got.Approvals[0].Decision).To(Equal(string(workflow.DecisionApproved)))
			Expect(got.Approvals[0].AutoApproved).To(BeTrue())
			Expect(got.Approvals[1].AutoApproved).To(BeFalse())
		})

		It("refuses a stale version without writing slots", func() {
			e := seed(1, 10, 0, 20)

			first, _ := repo.GetByID(ctx, 1, e.ID)
			second, _ := repo.GetByID(ctx, 1, e.ID)

			first.Approvals[0].Decision = string(workflow.DecisionApproved)
			ok, err := repo.Update(ctx, first, first.Version)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			second.Status = string(workflow.StatusRejected)
			second.Approvals[0].Decision = string(workflow.DecisionRejected)
			ok, err = repo.Update(ctx, second, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			got, _ := repo.GetByID(ctx, 1, e.ID)
			Expect(got.Status).To(Equal(string(workflow.StatusPending)))
			Expect(got.Approvals[0].Decision).To(Equal(string(workflow.DecisionApproved)))
			Expect(got.Version).To(Equal(int64(2)))
		})
	})
})
