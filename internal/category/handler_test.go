package category_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/category"
	categoryPostgres "github.com/frahmantamala/expense-approval/internal/category/postgres"
	categoryDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/category"
	"github.com/frahmantamala/expense-approval/internal/core/role"
	"github.com/frahmantamala/expense-approval/internal/transport"
)

var _ = Describe("Category Handler Integration", func() {
	var (
		repo    category.RepositoryAPI
		handler *category.Handler
		admin   *internal.Principal
		staff   *internal.Principal
	)

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&categoryDatamodel.ExpenseCategory{})).To(Succeed())

		repo = categoryPostgres.NewCategoryRepository(db)
		handler = category.NewHandler(transport.NewBaseHandler(slogger), category.NewService(repo, slogger))

		admin = &internal.Principal{UserID: 1, CompanyID: 1, Role: role.Admin}
		staff = &internal.Principal{UserID: 2, CompanyID: 1, Role: role.Employee}

		ctx := context.Background()
		for _, c := range []*category.Category{
			category.NewCategory(1, "Meals", "Meals and entertainment"),
			category.NewCategory(1, "Travel", "Business travel"),
			category.NewCategory(2, "Other", "Another company"),
		} {
			Expect(repo.Create(ctx, category.ToDataModel(c))).To(Succeed())
		}
		archived := category.NewCategory(1, "Archive", "Retired")
		archived.IsActive = false
		Expect(repo.Create(ctx, category.ToDataModel(archived))).To(Succeed())
	})

	as := func(req *http.Request, p *internal.Principal) *http.Request {
		return req.WithContext(internal.ContextWithPrincipal(req.Context(), p))
	}

	list := func(p *internal.Principal, url string) category.CategoriesResponse {
		w := httptest.NewRecorder()
		handler.GetCategories(w, as(httptest.NewRequest(http.MethodGet, url, nil), p))
		Expect(w.Code).To(Equal(http.StatusOK))

		var response category.CategoriesResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		return response
	}

	It("lists the caller company's active categories", func() {
		response := list(staff, "/categories")
		Expect(response.Categories).To(HaveLen(2))
		Expect(response.Categories[0].Name).To(Equal("Meals"))
		Expect(response.Categories[1].Name).To(Equal("Travel"))
	})

	It("lets admins include inactive categories", func() {
		Expect(list(admin, "/categories?all=true").Categories).To(HaveLen(3))
		Expect(list(staff, "/categories?all=true").Categories).To(HaveLen(2))
	})

	It("creates a category", func() {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(`{"name":"Hotels","description":"Lodging"}`))
		handler.CreateCategory(w, as(req, admin))

		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(list(staff, "/categories").Categories).To(HaveLen(3))
	})

	It("answers 409 for an existing name", func() {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(`{"name":"meals"}`))
		handler.CreateCategory(w, as(req, admin))
		Expect(w.Code).To(Equal(http.StatusConflict))
	})

	It("deactivates by id", func() {
		r := chi.NewRouter()
		r.Delete("/categories/{categoryID}", handler.DeactivateCategory)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, as(httptest.NewRequest(http.MethodDelete, "/categories/1", nil), admin))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(list(staff, "/categories").Categories).To(HaveLen(1))

		w = httptest.NewRecorder()
		r.ServeHTTP(w, as(httptest.NewRequest(http.MethodDelete, "/categories/abc", nil), admin))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
