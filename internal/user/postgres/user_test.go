package postgres_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-approval/internal/user"
	userPostgres "github.com/frahmantamala/expense-approval/internal/user/postgres"
)

func TestUserPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Postgres Suite")
}

var _ = Describe("User PostgreSQL Repository", func() {
	var (
		ctx  context.Context
		repo user.Repository
	)

	BeforeEach(func() {
		ctx = context.Background()
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&userDatamodel.User{})).To(Succeed())
		repo = userPostgres.NewUserRepository(db)
	})

	create := func(companyID int64, email, role string, active bool) *userDatamodel.User {
		u := &userDatamodel.User{CompanyID: companyID, Email: email, Name: email, PasswordHash: "x", Role: role, IsActive: active}
		Expect(repo.Create(ctx, u)).To(Succeed())
		return u
	}

	It("finds the lowest id active user with a role", func() {
		inactive := create(1, "a@x.io", "Finance", false)
		first := create(1, "b@x.io", "Finance", true)
		second := create(1, "c@x.io", "Finance", true)
		create(2, "d@x.io", "Finance", true)

		got, err := repo.FirstActiveWithRole(ctx, 1, "Finance", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(first.ID))
		Expect(got.ID).NotTo(Equal(inactive.ID))

		got, err = repo.FirstActiveWithRole(ctx, 1, "Finance", first.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(second.ID))

		got, err = repo.FirstActiveWithRole(ctx, 1, "CFO", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())
	})

	It("enforces unique emails", func() {
		create(1, "dup@x.io", "Employee", true)
		err := repo.Create(ctx, &userDatamodel.User{CompanyID: 1, Email: "dup@x.io", Name: "n", PasswordHash: "x", Role: "Employee"})
		Expect(err).To(HaveOccurred())

		exists, err := repo.EmailExists(ctx, "dup@x.io")
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())
	})

	It("updates role and manager", func() {
		mgr := create(1, "m@x.io", "Manager", true)
		emp := create(1, "e@x.io", "Employee", true)

		Expect(repo.UpdateManager(ctx, emp.ID, &mgr.ID)).To(Succeed())
		Expect(repo.UpdateRole(ctx, emp.ID, "Finance")).To(Succeed())

		got, err := repo.GetByID(ctx, emp.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Role).To(Equal("Finance"))
		Expect(*got.ManagerID).To(Equal(mgr.ID))

		Expect(repo.UpdateManager(ctx, emp.ID, nil)).To(Succeed())
		got, _ = repo.GetByID(ctx, emp.ID)
		Expect(got.ManagerID).To(BeNil())

		missing, err := repo.GetByID(ctx, 9999)
		Expect(err).NotTo(HaveOccurred())
		Expect(missing).To(BeNil())
	})
})
