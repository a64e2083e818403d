package domain

import "time"

// Status represents the lifecycle state of a registration.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusWaitlist  Status = "waitlist"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusAttended  Status = "attended"
	StatusNoShow    Status = "no_show"
)

// AllStatuses lists every lifecycle state. Used by the statistics
// rollup to zero-fill counts for states with no registrations.
var AllStatuses = []Status{
	StatusPending,
	StatusApproved,
	StatusWaitlist,
	StatusRejected,
	StatusCancelled,
	StatusAttended,
	StatusNoShow,
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusAttended, StatusNoShow:
		return true
	}
	return false
}

// HoldsCapacity reports whether a registration in this status occupies
// an admitted slot in the capacity ledger. Pending registrations hold a
// slot from admission time so that manual approval can never overbook.
func (s Status) HoldsCapacity() bool {
	switch s {
	case StatusPending, StatusApproved, StatusAttended:
		return true
	}
	return false
}

// Action represents an operation that triggers a state transition.
type Action string

const (
	ActionApprove    Action = "approve"
	ActionReject     Action = "reject"
	ActionCancel     Action = "cancel"
	ActionCheckIn    Action = "check_in"
	ActionPromote    Action = "promote"
	ActionMarkNoShow Action = "mark_no_show"
)

// Transition defines a valid state change: an action moves a
// registration from Src to Dst.
type Transition struct {
	Action Action
	Src    Status
	Dst    Status
}

// Transitions defines all valid state changes in the registration
// lifecycle. This is domain knowledge consumed by the FSM adapter.
// The waitlist reject entry exists for the promoter: a head-of-queue
// entry whose registration window has closed is rejected in place so
// the rest of the queue keeps moving.
var Transitions = []Transition{
	{Action: ActionApprove, Src: StatusPending, Dst: StatusApproved},
	{Action: ActionReject, Src: StatusPending, Dst: StatusRejected},
	{Action: ActionReject, Src: StatusWaitlist, Dst: StatusRejected},
	{Action: ActionCancel, Src: StatusPending, Dst: StatusCancelled},
	{Action: ActionCancel, Src: StatusApproved, Dst: StatusCancelled},
	{Action: ActionCancel, Src: StatusWaitlist, Dst: StatusCancelled},
	{Action: ActionCheckIn, Src: StatusApproved, Dst: StatusAttended},
	{Action: ActionPromote, Src: StatusWaitlist, Dst: StatusApproved},
	{Action: ActionMarkNoShow, Src: StatusApproved, Dst: StatusNoShow},
}

// RegistrationType records how an entry was admitted. It is distinct
// from the current status: a promoted waitlist entry becomes approved
// but keeps the waitlist type as an audit trail.
type RegistrationType string

const (
	TypeIndividual RegistrationType = "individual"
	TypeWaitlist   RegistrationType = "waitlist"
)

// ApprovalStatus records why the status is what it is, orthogonal to
// the status itself.
type ApprovalStatus string

const (
	ApprovalAuto    ApprovalStatus = "auto_approved"
	ApprovalPending ApprovalStatus = "pending_review"
)

// Details holds the optional applicant-supplied data captured at
// registration time.
type Details struct {
	CustomFields     map[string]string `json:"custom_fields,omitempty"`
	Accommodations   string            `json:"accommodations,omitempty"`
	EmergencyContact string            `json:"emergency_contact,omitempty"`
	Referrer         string            `json:"referrer,omitempty"`
}

// Registration is the core domain entity: one user's registration for
// one event. It is never physically deleted; cancelled and rejected are
// retained terminal states.
type Registration struct {
	ID             string
	EventID        string
	UserID         string
	Status         Status
	Type           RegistrationType
	ApprovalStatus ApprovalStatus

	// Waitlist bookkeeping. Position is a 1-based FIFO rank among
	// entries still in waitlist status; JoinedAt is the tie-breaker.
	WaitlistPosition int
	WaitlistJoinedAt time.Time

	// Financial terms fixed at admission time. They must not change
	// retroactively if the coupon table changes later.
	PaymentRequired bool
	PaymentAmount   float64
	DiscountApplied float64
	CouponCode      string
	Currency        string
	PaymentLink     string

	Details Details

	CheckInMethod   string
	CheckInLocation string
	CancelReason    string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	DecidedAt   time.Time
	CancelledAt time.Time
	CheckedInAt time.Time
}

// NewRegistration creates a directly admitted registration. The status
// depends on whether the event requires manual approval; either way the
// entry already holds a capacity slot.
func NewRegistration(id, eventID, userID string, requiresApproval bool, now time.Time) Registration {
	r := Registration{
		ID:        id,
		EventID:   eventID,
		UserID:    userID,
		Type:      TypeIndividual,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if requiresApproval {
		r.Status = StatusPending
		r.ApprovalStatus = ApprovalPending
	} else {
		r.Status = StatusApproved
		r.ApprovalStatus = ApprovalAuto
		r.DecidedAt = now
	}
	return r
}

// NewWaitlistRegistration creates a waitlisted registration at the
// given 1-based position.
func NewWaitlistRegistration(id, eventID, userID string, position int, now time.Time) Registration {
	return Registration{
		ID:               id,
		EventID:          eventID,
		UserID:           userID,
		Status:           StatusWaitlist,
		Type:             TypeWaitlist,
		ApprovalStatus:   ApprovalPending,
		WaitlistPosition: position,
		WaitlistJoinedAt: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
