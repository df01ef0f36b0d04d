package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/user"
)

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// Subscriber turns expense events into notifications.
type Subscriber struct {
	sender Sender
	users  UserLookup
	logger *slog.Logger
}

func NewSubscriber(sender Sender, users UserLookup, logger *slog.Logger) *Subscriber {
	return &Subscriber{sender: sender, users: users, logger: logger}
}

func (s *Subscriber) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeExpenseSubmitted, s.HandleSubmitted)
	bus.Subscribe(events.EventTypeExpenseResolved, s.HandleResolved)
}

// HandleSubmitted tells the first pending approver that an expense awaits them.
func (s *Subscriber) HandleSubmitted(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ExpenseSubmittedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}
	if len(e.ApproverIDs) == 0 {
		s.logger.Debug("submitted expense has no approver to notify", "expense_id", e.ExpenseID)
		return nil
	}

	employee, err := s.users.GetByID(ctx, e.EmployeeID)
	if err != nil {
		return err
	}
	to, err := s.recipient(ctx, e.ApproverIDs[0])
	if err != nil {
		return err
	}

	return s.sender.Send(ctx, Message{
		To:      to,
		Subject: "New Expense Submitted",
		Body: fmt.Sprintf("%s has submitted expense #%d for %s (%s %s).",
			employee.Name, e.ExpenseID, e.Category, e.Currency, e.Amount.StringFixed(2)),
	})
}

// HandleResolved tells the employee the final outcome.
func (s *Subscriber) HandleResolved(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ExpenseResolvedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	to, err := s.recipient(ctx, e.EmployeeID)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("Your expense #%d (%s %s) has been %s.",
		e.ExpenseID, e.Currency, e.Amount.StringFixed(2), strings.ToLower(e.Status))
	if e.Overridden {
		body += " The decision was made by an administrator override."
	}

	return s.sender.Send(ctx, Message{
		To:      to,
		Subject: "Expense " + e.Status,
		Body:    body,
	})
}

func (s *Subscriber) recipient(ctx context.Context, userID int64) (Recipient, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Recipient{}, fmt.Errorf("load recipient %d: %w", userID, err)
	}
	return Recipient{UserID: u.ID, Email: u.Email, Name: u.Name}, nil
}
