package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/neomorfeo/admitiq/internal/adapter/sqlite"
	"github.com/neomorfeo/admitiq/internal/domain"
)

// newTestStore creates an in-memory SQLite store for testing.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testTime(secs int) time.Time {
	return time.Date(2026, 6, 1, 10, 0, secs, 0, time.UTC)
}

func seedEvent(t *testing.T, store *sqlite.Store, e domain.Event) {
	t.Helper()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = testTime(0)
		e.UpdatedAt = testTime(0)
	}
	if err := store.Events.Create(context.Background(), e); err != nil {
		t.Fatalf("seeding event: %v", err)
	}
}

func seedRegistration(t *testing.T, store *sqlite.Store, reg domain.Registration) {
	t.Helper()
	if err := store.Registrations.Create(context.Background(), reg); err != nil {
		t.Fatalf("seeding registration: %v", err)
	}
}
