package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrEventNotFound        = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
)

// ValidationError is returned for business-rule violations: closed
// registration window, ineligible user, full event with no waitlist.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// DuplicateRegistrationError is returned when a non-terminal
// registration already exists for the same event and user.
type DuplicateRegistrationError struct {
	EventID string
	UserID  string
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("user %q is already registered for event %q", e.UserID, e.EventID)
}

// PermissionError is returned when the acting user lacks rights over
// the registration.
type PermissionError struct {
	ActorID string
	Action  string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("actor %q is not allowed to %s", e.ActorID, e.Action)
}

// CapacityConflictError is returned when a ledger update lost a race
// with a concurrent writer. Callers retry once, then treat the event
// as full.
type CapacityConflictError struct {
	EventID string
}

func (e *CapacityConflictError) Error() string {
	return fmt.Sprintf("capacity update conflict for event %q", e.EventID)
}

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Action  Action
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("action %q is not valid from state %q", e.Action, e.Current)
}
