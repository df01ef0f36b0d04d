package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/cors"

	"github.com/frahmantamala/expense-approval/api"
	"github.com/frahmantamala/expense-approval/internal/analytics"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/category"
	"github.com/frahmantamala/expense-approval/internal/company"
	"github.com/frahmantamala/expense-approval/internal/core/role"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"github.com/frahmantamala/expense-approval/internal/rule"
	"github.com/frahmantamala/expense-approval/internal/transport/middleware"
	"github.com/frahmantamala/expense-approval/internal/transport/swagger"
	"github.com/frahmantamala/expense-approval/internal/user"
)

const BasePath = "/api/v1"

// Handlers groups every HTTP handler mounted by RegisterAllRoutes.
type Handlers struct {
	Health    *HealthHandler
	Auth      *auth.Handler
	User      *user.Handler
	Company   *company.Handler
	Category  *category.Handler
	Expense   *expense.Handler
	Rule      *rule.Handler
	Analytics *analytics.Handler
}

type RouterOptions struct {
	AllowedOrigins []string
	// Validator is optional; when set, requests are checked against the OpenAPI document.
	Validator *middleware.OpenAPIValidator
}

func RegisterAllRoutes(router chi.Router, h Handlers, resolver middleware.PrincipalResolver, opts RouterOptions, logger *slog.Logger) {
	adminOnly := middleware.RequireRoles(logger, role.Admin)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.TraceHeader},
		ExposedHeaders:   []string{middleware.TraceHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.Spec)
	})
	router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))

	router.Route(BasePath, func(r chi.Router) {
		if opts.Validator != nil {
			r.Use(opts.Validator.Middleware)
		}

		r.Get("/health", h.Health.Health)
		r.Get("/ping", h.Health.Ping)

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/signup", h.Auth.Signup)
			ar.Post("/login", h.Auth.Login)
			ar.Post("/refresh", h.Auth.RefreshToken)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.Authenticate(resolver, logger))

			pr.Get("/users/me", h.User.GetCurrentUser)
			pr.Get("/company", h.Company.GetCompany)
			pr.Get("/categories", h.Category.GetCategories)
			pr.Get("/analytics/expenses", h.Analytics.GetExpenseAnalytics)

			pr.Group(func(ar chi.Router) {
				ar.Use(adminOnly)
				ar.Get("/users", h.User.ListUsers)
				ar.Post("/users", h.User.CreateUser)
				ar.Put("/users/{userID}/role", h.User.UpdateRole)
				ar.Put("/users/{userID}/manager", h.User.AssignManager)

				ar.Post("/categories", h.Category.CreateCategory)
				ar.Delete("/categories/{categoryID}", h.Category.DeactivateCategory)
			})

			pr.Route("/expenses", func(er chi.Router) {
				er.Post("/", h.Expense.CreateExpense)
				er.Get("/me", h.Expense.GetMyExpenses)
				er.With(adminOnly).Get("/", h.Expense.GetAllExpenses)
				er.Get("/{expenseID}", h.Expense.GetExpense)
			})

			pr.Route("/approvals", func(apr chi.Router) {
				apr.Route("/rules", func(rr chi.Router) {
					rr.Use(adminOnly)
					rr.Post("/", h.Rule.CreateRule)
					rr.Get("/", h.Rule.ListRules)
					rr.Get("/{ruleID}", h.Rule.GetRule)
					rr.Delete("/{ruleID}", h.Rule.DeleteRule)
				})

				apr.With(middleware.RequireApprover(logger)).Get("/pending", h.Expense.GetPendingApprovals)
				// role and slot checks happen in the service so ad-hoc approvers can act
				apr.Post("/{expenseID}", h.Expense.DecideExpense)
				apr.With(adminOnly).Put("/{expenseID}/override", h.Expense.OverrideExpense)
			})
		})
	})
}
