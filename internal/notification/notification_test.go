package notification_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"github.com/slack-go/slack"

	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/notification"
	"github.com/frahmantamala/expense-approval/internal/user"
)

func TestNotification(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Notification Suite")
}

type recordingSender struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (r *recordingSender) Send(_ context.Context, msg notification.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingSender) messages() []notification.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification.Message(nil), r.sent...)
}

type fakeUsers map[int64]*user.User

func (f fakeUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, errors.New("user not found")
}

var _ = Describe("Subscriber", func() {
	var (
		ctx    context.Context
		sender *recordingSender
		sub    *notification.Subscriber
	)

	BeforeEach(func() {
		ctx = context.Background()
		sender = &recordingSender{}
		users := fakeUsers{
			1: {ID: 1, Name: "Erin", Email: "erin@acme.io"},
			2: {ID: 2, Name: "Max", Email: "max@acme.io"},
			3: {ID: 3, Name: "Fay", Email: "fay@acme.io"},
		}
		sub = notification.NewSubscriber(sender, users, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("notifies the first pending approver of a submission", func() {
		e := events.NewExpenseSubmittedEvent(10, 1, 1, decimal.RequireFromString("42.5"), "EUR", "Travel", []int64{2, 3})
		Expect(sub.HandleSubmitted(ctx, e)).To(Succeed())

		msgs := sender.messages()
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].To.Email).To(Equal("max@acme.io"))
		Expect(msgs[0].Body).To(Equal("Erin has submitted expense #10 for Travel (EUR 42.50)."))
	})

	It("stays quiet when nobody has to approve", func() {
		e := events.NewExpenseSubmittedEvent(10, 1, 1, decimal.NewFromInt(1), "EUR", "Travel", nil)
		Expect(sub.HandleSubmitted(ctx, e)).To(Succeed())
		Expect(sender.messages()).To(BeEmpty())
	})

	It("tells the employee about the outcome", func() {
		e := events.NewExpenseResolvedEvent(10, 1, 1, "Rejected", decimal.NewFromInt(99), "USD", 2, true)
		Expect(sub.HandleResolved(ctx, e)).To(Succeed())

		msgs := sender.messages()
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].To.UserID).To(Equal(int64(1)))
		Expect(msgs[0].Subject).To(Equal("Expense Rejected"))
		Expect(msgs[0].Body).To(ContainSubstring("has been rejected"))
		Expect(msgs[0].Body).To(ContainSubstring("override"))
	})

	It("fails on unknown recipients", func() {
		e := events.NewExpenseResolvedEvent(10, 1, 404, "Approved", decimal.NewFromInt(1), "USD", 2, false)
		Expect(sub.HandleResolved(ctx, e)).To(MatchError(ContainSubstring("load recipient 404")))
	})

	It("is wired to the bus", func() {
		bus := events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
		sub.Register(bus)

		Expect(bus.Publish(ctx, events.NewExpenseResolvedEvent(10, 1, 1, "Approved", decimal.NewFromInt(1), "USD", 2, false))).To(Succeed())
		Expect(bus.Wait(ctx)).To(Succeed())
		Expect(sender.messages()).To(HaveLen(1))
	})
})

var _ = Describe("Senders", func() {
	msg := notification.Message{
		To:      notification.Recipient{UserID: 1, Name: "Erin", Email: "erin@acme.io"},
		Subject: "Expense Approved",
		Body:    "done",
	}

	It("logs messages", func() {
		var buf bytes.Buffer
		s := notification.NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))
		Expect(s.Send(context.Background(), msg)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("erin@acme.io"))
	})

	It("posts to the configured Slack channel", func() {
		var form map[string][]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			form = r.PostForm
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "channel": "C123", "ts": "1.0"})
		}))
		defer server.Close()

		s := notification.NewSlackSender("xoxb-test", "C123", slack.OptionAPIURL(server.URL+"/"))
		Expect(s.Send(context.Background(), msg)).To(Succeed())
		Expect(form["channel"]).To(ConsistOf("C123"))
		Expect(form["text"][0]).To(ContainSubstring("*Expense Approved*"))
	})

	It("surfaces Slack API errors", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"ok":false,"error":"channel_not_found"}`)
		}))
		defer server.Close()

		s := notification.NewSlackSender("xoxb-test", "C404", slack.OptionAPIURL(server.URL+"/"))
		Expect(s.Send(context.Background(), msg)).To(MatchError(ContainSubstring("channel_not_found")))
	})
})
