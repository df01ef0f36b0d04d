package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/expense-approval/api"
	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/analytics"
	analyticsPostgres "github.com/frahmantamala/expense-approval/internal/analytics/postgres"
	"github.com/frahmantamala/expense-approval/internal/auth"
	authPostgres "github.com/frahmantamala/expense-approval/internal/auth/postgres"
	"github.com/frahmantamala/expense-approval/internal/category"
	categoryPostgres "github.com/frahmantamala/expense-approval/internal/category/postgres"
	"github.com/frahmantamala/expense-approval/internal/company"
	companyPostgres "github.com/frahmantamala/expense-approval/internal/company/postgres"
	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/currency"
	"github.com/frahmantamala/expense-approval/internal/expense"
	expensePostgres "github.com/frahmantamala/expense-approval/internal/expense/postgres"
	"github.com/frahmantamala/expense-approval/internal/notification"
	"github.com/frahmantamala/expense-approval/internal/rule"
	rulePostgres "github.com/frahmantamala/expense-approval/internal/rule/postgres"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/frahmantamala/expense-approval/internal/transport/middleware"
	"github.com/frahmantamala/expense-approval/internal/transport/rest"
	"github.com/frahmantamala/expense-approval/internal/user"
	userPostgres "github.com/frahmantamala/expense-approval/internal/user/postgres"
	"github.com/frahmantamala/expense-approval/internal/workflow"
	"github.com/frahmantamala/expense-approval/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Router *chi.Mux
	Bus    *events.EventBus
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	lg := deps.Logger

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	lg.Info("Starting HTTP server", "address", addr, "env", deps.Config.Server.Env)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		lg.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			lg.Error("Server shutdown error", "error", err)
		}
		// let in-flight notifications finish before the pool goes away
		if err := deps.Bus.Wait(ctx); err != nil {
			lg.Warn("Event handlers still running at shutdown", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			lg.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	lg.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	cfg, err := setup()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	gdb, err := initGorm(db, cfg.Server.Env)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	deps := &Dependencies{
		Config: cfg,
		DB:     db,
		Gorm:   gdb,
		Router: chi.NewRouter(),
		Bus:    events.NewEventBus(lg),
		Logger: lg,
	}
	if err := wire(deps); err != nil {
		_ = db.Close()
		return nil, err
	}
	return deps, nil
}

func newSender(cfg internal.NotificationConfig, lg *slog.Logger) notification.Sender {
	if cfg.SlackEnabled {
		return notification.NewSlackSender(cfg.SlackToken, cfg.SlackChannel)
	}
	return notification.NewLogSender(lg)
}

func senderName(cfg internal.NotificationConfig) string {
	if cfg.SlackEnabled {
		return "slack"
	}
	return "log"
}

// wire builds every repository, service and handler and mounts the routes.
func wire(deps *Dependencies) error {
	cfg, lg := deps.Config, deps.Logger

	userRepo := userPostgres.NewUserRepository(deps.Gorm)
	companyRepo := companyPostgres.NewCompanyRepository(deps.Gorm)
	categoryRepo := categoryPostgres.NewCategoryRepository(deps.Gorm)
	ruleRepo := rulePostgres.NewRuleRepository(deps.Gorm)
	expenseRepo := expensePostgres.NewExpenseRepository(deps.Gorm)
	authRepo := authPostgres.NewRepository(deps.Gorm)
	analyticsRepo := analyticsPostgres.NewRepository(deps.DB)

	hasher := auth.NewBcryptHasher(cfg.Security.BCryptCost)
	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.JWTSecret,
		cfg.Security.JWTRefreshSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)

	authService := auth.NewService(authRepo, companyRepo, tokens, hasher, auth.ServiceConfig{
		DefaultCurrency: cfg.Currency.DefaultCurrency,
		AccessTTLSecs:   int64(cfg.Security.AccessTokenDuration.Seconds()),
	}, lg)
	userService := user.NewService(userRepo, hasher, lg)
	companyService := company.NewService(companyRepo, lg)
	categoryService := category.NewService(categoryRepo, lg)
	ruleService := rule.NewService(ruleRepo, userService, lg)
	initializer := workflow.NewInitializer(user.NewApproverDirectory(userRepo), lg)
	converter := currency.NewClient(currency.Config{
		BaseURL:  cfg.Currency.BaseURL,
		Timeout:  cfg.Currency.Timeout,
		CacheTTL: cfg.Currency.CacheTTL,
	}, lg)

	notification.NewSubscriber(newSender(cfg.Notification, lg), userService, lg).Register(deps.Bus)

	expenseService := expense.NewService(expenseRepo, ruleService, initializer, converter, categoryService, deps.Bus, lg)
	analyticsService := analytics.NewService(analyticsRepo, lg)

	base := transport.NewBaseHandler(lg)
	handlers := rest.Handlers{
		Health: rest.NewHealthHandler(deps.DB, rest.HealthOptions{
			MigrationsTable: migrationsTable,
			Notifier:        senderName(cfg.Notification),
		}),
		Auth:      auth.NewHandler(base, authService),
		User:      user.NewHandler(base, userService),
		Company:   company.NewHandler(base, companyService),
		Category:  category.NewHandler(base, categoryService),
		Expense:   expense.NewHandler(base, expenseService),
		Rule:      rule.NewHandler(base, ruleService),
		Analytics: analytics.NewHandler(base, analyticsService),
	}

	opts := rest.RouterOptions{AllowedOrigins: cfg.Server.Origins()}
	if cfg.Server.ValidateRequests {
		validator, err := middleware.NewOpenAPIValidator(api.Spec, rest.BasePath, lg)
		if err != nil {
			return fmt.Errorf("failed to load OpenAPI validator: %w", err)
		}
		opts.Validator = validator
	}

	rest.RegisterAllRoutes(deps.Router, handlers, authService, opts, lg)
	return nil
}

// initDB opens the pgx-backed pool shared by sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	db, err := sqlx.Open(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := internal.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func initGorm(db *sqlx.DB, env string) (*gorm.DB, error) {
	level := gormlogger.Warn
	if env == "production" {
		level = gormlogger.Error
	}
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
}
