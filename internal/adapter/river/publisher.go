package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/admitiq/internal/domain"
)

// Compile-time check: Notifier implements domain.Notifier.
var _ domain.Notifier = (*Notifier)(nil)

// NotificationJobArgs carries the data needed to dispatch a
// notification asynchronously. River serializes this as JSON into its
// job queue table. It includes a snapshot of the registration at the
// time the notification was produced, so the worker never needs to
// query the database.
type NotificationJobArgs struct {
	NotificationKind string `json:"kind"`
	RegistrationID   string `json:"registration_id"`
	EventID          string `json:"event_id"`
	UserID           string `json:"user_id"`
	Status           string `json:"status"`
	WaitlistPosition int    `json:"waitlist_position,omitempty"`
	PaymentLink      string `json:"payment_link,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (NotificationJobArgs) Kind() string { return "notification.send" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Notifier implements domain.Notifier by enqueuing River jobs. The
// enqueue is the transaction boundary: once the job is in the queue the
// registration path is done, and delivery retries happen in the worker.
type Notifier struct {
	client *Client
}

// NewNotifier creates a notifier backed by the given River client.
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

// Send enqueues a notification as an async job in River.
func (n *Notifier) Send(ctx context.Context, notification domain.Notification) error {
	_, err := n.client.Insert(ctx, NotificationJobArgs{
		NotificationKind: string(notification.Kind),
		RegistrationID:   notification.RegistrationID,
		EventID:          notification.EventID,
		UserID:           notification.UserID,
		Status:           string(notification.Status),
		WaitlistPosition: notification.WaitlistPosition,
		PaymentLink:      notification.PaymentLink,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing notification job: %w", err)
	}
	return nil
}
