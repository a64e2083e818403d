package domain_test

import (
	"testing"

	"github.com/neomorfeo/admitiq/internal/domain"
)

func TestDuplicateRegistrationError_Error(t *testing.T) {
	err := &domain.DuplicateRegistrationError{EventID: "ev-1", UserID: "user-1"}
	want := `user "user-1" is already registered for event "ev-1"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestTransitionError_Error(t *testing.T) {
	err := &domain.TransitionError{
		Action:  domain.ActionApprove,
		Current: domain.StatusCancelled,
	}
	want := `action "approve" is not valid from state "cancelled"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestPermissionError_Error(t *testing.T) {
	err := &domain.PermissionError{ActorID: "user-2", Action: "approve registrations"}
	want := `actor "user-2" is not allowed to approve registrations`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestCapacityConflictError_Error(t *testing.T) {
	err := &domain.CapacityConflictError{EventID: "ev-1"}
	want := `capacity update conflict for event "ev-1"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
