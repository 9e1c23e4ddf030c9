// Package notifs is the outbound notification collaborator. Delivery is
// fire-and-forget: failures are logged by callers, never surfaced as request
// failures.
package notifs

import (
	"context"
	"log/slog"
)

type Event string

const (
	EventAccountApproved      = Event("account.approved")
	EventAccountRejected      = Event("account.rejected")
	EventAccountSuspended     = Event("account.suspended")
	EventApplicationSubmitted = Event("application.submitted")
	EventPasswordReset        = Event("account.password_reset")
)

type Notifier interface {
	Notify(ctx context.Context, accountID uint, event Event, payload map[string]any) error
}

// SlogNotifier stands in for an email gateway: it records what would have
// been sent. Useful in development and as the default wiring.
type SlogNotifier struct {
	log *slog.Logger
}

func NewSlogNotifier(log *slog.Logger) *SlogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &SlogNotifier{log: log.With("system", "notifs")}
}

func (n *SlogNotifier) Notify(ctx context.Context, accountID uint, event Event, payload map[string]any) error {
	n.log.InfoContext(ctx, "notify", "account", accountID, "event", event, "payload", payload)
	return nil
}
