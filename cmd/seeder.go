package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/auth"
	authPostgres "github.com/frahmantamala/expense-approval/internal/auth/postgres"
	"github.com/frahmantamala/expense-approval/internal/category"
	categoryPostgres "github.com/frahmantamala/expense-approval/internal/category/postgres"
	companyPostgres "github.com/frahmantamala/expense-approval/internal/company/postgres"
	"github.com/frahmantamala/expense-approval/internal/core/role"
	"github.com/frahmantamala/expense-approval/internal/rule"
	rulePostgres "github.com/frahmantamala/expense-approval/internal/rule/postgres"
	"github.com/frahmantamala/expense-approval/internal/user"
	userPostgres "github.com/frahmantamala/expense-approval/internal/user/postgres"
	"github.com/frahmantamala/expense-approval/pkg/logger"
)

const seedPassword = "password123"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with a demo company",
	Long:  `Create a demo company with one user per role, expense categories and two approval rules.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		lg := logger.LoggerWrapper()

		db, err := initDB(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		gdb, err := initGorm(db, cfg.Server.Env)
		if err != nil {
			return err
		}

		hasher := auth.NewBcryptHasher(cfg.Security.BCryptCost)
		userRepo := userPostgres.NewUserRepository(gdb)
		authService := auth.NewService(authPostgres.NewRepository(gdb), companyPostgres.NewCompanyRepository(gdb),
			auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.JWTRefreshSecret,
				cfg.Security.AccessTokenDuration, cfg.Security.RefreshTokenDuration),
			hasher, auth.ServiceConfig{DefaultCurrency: cfg.Currency.DefaultCurrency}, lg)
		userService := user.NewService(userRepo, hasher, lg)
		categoryService := category.NewService(categoryPostgres.NewCategoryRepository(gdb), lg)
		ruleService := rule.NewService(rulePostgres.NewRuleRepository(gdb), userService, lg)

		ctx := context.Background()
		signup, err := authService.Signup(ctx, auth.SignupDTO{
			CompanyName: "Acme Corp",
			Country:     "United States",
			Currency:    cfg.Currency.DefaultCurrency,
			Name:        "Ada Admin",
			Email:       "admin@acme.test",
			Password:    seedPassword,
		})
		if errors.Is(err, internal.ErrEmailTaken) {
			fmt.Println("demo company already seeded")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to create demo company: %w", err)
		}
		companyID := signup.CompanyID

		create := func(name, email string, r role.Role, managerID *int64) (*user.User, error) {
			return userService.CreateUser(ctx, companyID, user.CreateUserDTO{
				Name: name, Email: email, Password: seedPassword, Role: string(r), ManagerID: managerID,
			})
		}

		cfo, err := create("Carla CFO", "cfo@acme.test", role.CFO, nil)
		if err != nil {
			return err
		}
		director, err := create("Dan Director", "director@acme.test", role.Director, &cfo.ID)
		if err != nil {
			return err
		}
		if _, err := create("Fiona Finance", "finance@acme.test", role.Finance, &director.ID); err != nil {
			return err
		}
		manager, err := create("Max Manager", "manager@acme.test", role.Manager, &director.ID)
		if err != nil {
			return err
		}
		for _, e := range []struct{ name, email string }{
			{"Eve Employee", "eve@acme.test"},
			{"Erin Employee", "erin@acme.test"},
		} {
			if _, err := create(e.name, e.email, role.Employee, &manager.ID); err != nil {
				return err
			}
		}

		for _, c := range []category.CreateCategoryDTO{
			{Name: "Travel", Description: "Flights, trains, taxis and lodging"},
			{Name: "Meals", Description: "Meals and entertainment"},
			{Name: "Office", Description: "Supplies and equipment"},
			{Name: "Training", Description: "Courses, books and conferences"},
			{Name: "Other", Description: "Anything else"},
		} {
			if _, err := categoryService.Create(ctx, companyID, c); err != nil {
				return err
			}
		}

		required, optional := true, false
		rules := []rule.CreateRuleDTO{
			{
				Name: "Standard",
				Sequence: []rule.StepDTO{
					{Step: 1, ApproverRole: string(role.Manager), Required: &required},
					{Step: 2, ApproverRole: string(role.Finance), Required: &optional},
				},
				PercentageRule:  intPtr(60),
				AmountThreshold: decimalPtr(decimal.Zero),
			},
			{
				Name: "Large spend",
				Sequence: []rule.StepDTO{
					{Step: 1, ApproverRole: string(role.Manager), Required: &required},
					{Step: 2, ApproverRole: string(role.Director), Required: &required},
					{Step: 3, ApproverRole: string(role.CFO), Required: &required},
				},
				SpecificApproverID: &cfo.ID,
				AmountThreshold:    decimalPtr(decimal.NewFromInt(5000)),
			},
		}
		for _, r := range rules {
			if _, err := ruleService.Create(ctx, companyID, r); err != nil {
				return err
			}
		}

		fmt.Printf("Seeded company %d; every user logs in with %q\n", companyID, seedPassword)
		return nil
	},
}

func intPtr(v int) *int { return &v }

func decimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }
