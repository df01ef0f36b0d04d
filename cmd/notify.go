package cmd

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/notification"
	"github.com/frahmantamala/expense-approval/internal/user"
	userPostgres "github.com/frahmantamala/expense-approval/internal/user/postgres"
	"github.com/frahmantamala/expense-approval/internal/workflow"
	"github.com/frahmantamala/expense-approval/pkg/logger"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification commands",
	Long:  `Exercise the notification pipeline against the configured sender`,
}

var (
	notifyUserID int64
	notifyStatus string
)

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a sample resolution notice to a user",
	Long:  `Publish a synthetic expense.resolved event and deliver it through the configured sender (Slack or log)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if notifyUserID <= 0 {
			return fmt.Errorf("--user-id is required")
		}
		status := workflow.Status(notifyStatus)
		if !status.IsTerminal() {
			return fmt.Errorf("--status must be Approved or Rejected")
		}

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

		users := user.NewService(userPostgres.NewUserRepository(gdb), nil, lg)
		bus := events.NewEventBus(lg)
		notification.NewSubscriber(newSender(cfg.Notification, lg), users, lg).Register(bus)

		event := events.NewExpenseResolvedEvent(0, 0, notifyUserID, string(status),
			decimal.NewFromInt(42), cfg.Currency.DefaultCurrency, 0, false)

		lg.Info("publishing test notification", "user_id", notifyUserID, "event_id", event.EventID())
		if err := bus.PublishSync(context.Background(), event); err != nil {
			return fmt.Errorf("notification failed: %w", err)
		}
		lg.Info("test notification delivered")
		return nil
	},
}

func init() {
	notifyTestCmd.Flags().Int64Var(&notifyUserID, "user-id", 0, "recipient user id")
	notifyTestCmd.Flags().StringVar(&notifyStatus, "status", string(workflow.StatusApproved), "resolution to announce")

	notifyCmd.AddCommand(notifyTestCmd)
}
