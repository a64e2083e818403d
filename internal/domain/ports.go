package domain

import "context"

// EventRepository defines the persistence contract for events.
type EventRepository interface {
	Create(ctx context.Context, event Event) error
	GetByID(ctx context.Context, id string) (Event, error)
	List(ctx context.Context, filter ListFilter) ([]Event, error)
}

// RegistrationRepository defines the persistence contract for
// registrations. Registrations are inserted and updated, never deleted.
type RegistrationRepository interface {
	Create(ctx context.Context, reg Registration) error
	// Enqueue inserts a waitlist registration, assigning the next free
	// position atomically with the insert. Reading the queue length and
	// writing the row must be one statement: two concurrent joiners must
	// never end up with the same position. Returns the assigned position.
	Enqueue(ctx context.Context, reg Registration) (int, error)
	GetByID(ctx context.Context, id string) (Registration, error)
	// GetActive returns the non-terminal registration for the given
	// event and user, or ErrRegistrationNotFound if none exists.
	GetActive(ctx context.Context, eventID, userID string) (Registration, error)
	ListByEvent(ctx context.Context, eventID string, filter ListFilter) ([]Registration, error)
	Update(ctx context.Context, reg Registration) error

	// CountWaitlist returns the number of entries currently in
	// waitlist status for the event.
	CountWaitlist(ctx context.Context, eventID string) (int, error)
	// NextWaitlisted returns the head of the FIFO waitlist (smallest
	// position, earliest joined), or ErrRegistrationNotFound when the
	// waitlist is empty.
	NextWaitlisted(ctx context.Context, eventID string) (Registration, error)
	// ResequenceWaitlist recomputes waitlist positions for the event
	// to a contiguous 1..n sequence ordered by join time.
	ResequenceWaitlist(ctx context.Context, eventID string) error
	// WaitlistPosition returns the current position of the user's
	// waitlist entry, or ErrRegistrationNotFound.
	WaitlistPosition(ctx context.Context, eventID, userID string) (int, error)

	CountsByStatus(ctx context.Context, eventID string) (map[Status]int, error)
	CountsByUser(ctx context.Context, userID string) (map[Status]int, error)
}

// ListFilter holds optional criteria for listing events or registrations.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// CapacityLedger owns the authoritative admitted count per event and
// the coupon usage counters. Both primitives are atomic: concurrent
// calls against the last remaining slot (or coupon use) resolve to
// exactly one success.
type CapacityLedger interface {
	// TryAdmit atomically increments the admitted count if it is below
	// the event's capacity and reports whether the slot was taken.
	TryAdmit(ctx context.Context, eventID string) (bool, error)
	// Release atomically decrements the admitted count, floored at zero.
	Release(ctx context.Context, eventID string) error
	// RedeemCoupon atomically increments a coupon's used count if it is
	// below max uses and reports whether the redemption succeeded.
	RedeemCoupon(ctx context.Context, eventID, code string) (bool, error)
}

// TransitionValidator checks and applies lifecycle transitions.
type TransitionValidator interface {
	// Apply returns the destination status for the given action from
	// the current status, or a TransitionError.
	Apply(ctx context.Context, current Status, action Action) (Status, error)
}

// NotificationKind identifies the template of an outbound notification.
type NotificationKind string

const (
	NotifyConfirmation   NotificationKind = "registration_confirmed"
	NotifyWaitlistJoined NotificationKind = "waitlist_joined"
	NotifyPromoted       NotificationKind = "waitlist_promoted"
	NotifyApproved       NotificationKind = "registration_approved"
	NotifyRejected       NotificationKind = "registration_rejected"
	NotifyCancelled      NotificationKind = "registration_cancelled"
)

// Notification is the payload handed to the notification dispatcher.
// It carries a snapshot of the registration so the dispatcher never
// needs to query the database.
type Notification struct {
	Kind             NotificationKind
	RegistrationID   string
	EventID          string
	UserID           string
	Status           Status
	WaitlistPosition int
	PaymentLink      string
}

// Notifier defines the contract for dispatching notifications.
// Dispatch is fire-and-forget: delivery failures never roll back the
// state transition that produced the notification.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// PaymentProvider produces payment links for paid registrations.
type PaymentProvider interface {
	CreatePaymentLink(ctx context.Context, registrationID string, amount float64, currency, description string) (string, error)
}

// EligibilityChecker runs event-specific eligibility predicates
// (role, faculty, prerequisites) for an applicant. A nil error means
// the user may register.
type EligibilityChecker interface {
	CheckEligibility(ctx context.Context, event Event, userID string) error
}
