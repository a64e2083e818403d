package app_test

import (
	"context"
	"sync"
	"testing"

	"github.com/neomorfeo/admitiq/internal/adapter/fsm"
	"github.com/neomorfeo/admitiq/internal/adapter/sqlite"
	"github.com/neomorfeo/admitiq/internal/app"
	"github.com/neomorfeo/admitiq/internal/clock"
	"github.com/neomorfeo/admitiq/internal/domain"
)

// silentNotifier discards notifications; safe for concurrent sends.
type silentNotifier struct{}

func (*silentNotifier) Send(_ context.Context, _ domain.Notification) error { return nil }

// newSQLiteService wires the service over a real in-memory store so
// concurrent calls contend on the actual persistence layer instead of
// single-threaded mocks.
func newSQLiteService(t *testing.T) (*app.RegistrationService, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := app.NewRegistrationService(
		store.Events, store.Registrations, store.Ledger, fsm.New(),
		&silentNotifier{}, &stubPayments{}, &openEligibility{}, clock.NewSystem(),
	)
	return svc, store
}

func TestRegisterForEvent_ConcurrentWaitlistJoins(t *testing.T) {
	svc, store := newSQLiteService(t)
	ctx := context.Background()

	seedStoreEvent(t, store, domain.Event{
		ID: "ev-1", Name: "x", OrganizerID: "org-1", CapacityMax: 1,
		WaitlistEnabled: true, Free: true,
	})

	if _, err := svc.RegisterForEvent(ctx, "ev-1", "user-0", app.RegisterInput{}); err != nil {
		t.Fatalf("filling the event: %v", err)
	}

	// Two joiners hit the full event at the same time. Each must come
	// away with its own position.
	users := []string{"user-1", "user-2"}
	regs := make([]domain.Registration, len(users))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, user := range users {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			<-start
			reg, err := svc.RegisterForEvent(ctx, "ev-1", user, app.RegisterInput{})
			if err != nil {
				t.Errorf("RegisterForEvent %s failed: %v", user, err)
				return
			}
			regs[i] = reg
		}(i, user)
	}
	close(start)
	wg.Wait()

	seen := make(map[int]string)
	for _, reg := range regs {
		if reg.Status != domain.StatusWaitlist {
			t.Errorf("%s Status = %q, want %q", reg.UserID, reg.Status, domain.StatusWaitlist)
		}
		if other, dup := seen[reg.WaitlistPosition]; dup {
			t.Errorf("position %d assigned to both %s and %s", reg.WaitlistPosition, other, reg.UserID)
		}
		seen[reg.WaitlistPosition] = reg.UserID
	}
	for pos := 1; pos <= len(users); pos++ {
		if _, ok := seen[pos]; !ok {
			t.Errorf("position %d missing, got %v", pos, seen)
		}
	}
}

func TestRegisterForEvent_ConcurrentAdmissions(t *testing.T) {
	svc, store := newSQLiteService(t)
	ctx := context.Background()

	seedStoreEvent(t, store, domain.Event{
		ID: "ev-1", Name: "x", OrganizerID: "org-1", CapacityMax: 3,
		WaitlistEnabled: true, Free: true,
	})

	const joiners = 8

	start := make(chan struct{})
	results := make(chan domain.Status, joiners)
	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			reg, err := svc.RegisterForEvent(ctx, "ev-1", userID(i), app.RegisterInput{})
			if err != nil {
				t.Errorf("RegisterForEvent %d failed: %v", i, err)
				return
			}
			results <- reg.Status
		}(i)
	}
	close(start)
	wg.Wait()
	close(results)

	approved, waitlisted := 0, 0
	for status := range results {
		switch status {
		case domain.StatusApproved:
			approved++
		case domain.StatusWaitlist:
			waitlisted++
		default:
			t.Errorf("unexpected status %q", status)
		}
	}
	if approved != 3 {
		t.Errorf("approved = %d, want exactly 3", approved)
	}
	if waitlisted != joiners-3 {
		t.Errorf("waitlisted = %d, want %d", waitlisted, joiners-3)
	}

	event, err := store.Events.GetByID(ctx, "ev-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if event.AdmittedCount != 3 {
		t.Errorf("AdmittedCount = %d, want 3", event.AdmittedCount)
	}
}

func userID(i int) string {
	return "user-" + string(rune('a'+i))
}

func seedStoreEvent(t *testing.T, store *sqlite.Store, e domain.Event) {
	t.Helper()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = clock.NewSystem().Now()
		e.UpdatedAt = e.CreatedAt
	}
	if err := store.Events.Create(context.Background(), e); err != nil {
		t.Fatalf("seeding event: %v", err)
	}
}
