package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
)

type Recipient struct {
	UserID int64
	Email  string
	Name   string
}

type Message struct {
	To      Recipient
	Subject string
	Body    string
}

// Sender delivers a message. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes notifications to the log. Used when no channel is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "notification",
		"to_user_id", msg.To.UserID,
		"to_email", msg.To.Email,
		"subject", msg.Subject,
		"body", msg.Body)
	return nil
}

// SlackSender posts notifications into a single Slack channel.
type SlackSender struct {
	client  *slack.Client
	channel string
}

func NewSlackSender(token, channel string, options ...slack.Option) *SlackSender {
	return &SlackSender{client: slack.New(token, options...), channel: channel}
}

func (s *SlackSender) Send(ctx context.Context, msg Message) error {
	text := fmt.Sprintf("*%s*\nTo: %s <%s>\n%s", msg.Subject, msg.To.Name, msg.To.Email, msg.Body)
	_, _, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("failed to post message to Slack: %w", err)
	}
	return nil
}
