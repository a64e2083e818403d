package otel_test

import (
	"context"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/codes"

	adapter "github.com/neomorfeo/admitiq/internal/adapter/otel"
	"github.com/neomorfeo/admitiq/internal/domain"
)

// --- Mock notifier ---

type mockNotifier struct {
	sent []domain.Notification
}

func (m *mockNotifier) Send(_ context.Context, n domain.Notification) error {
	m.sent = append(m.sent, n)
	return nil
}

type failingNotifier struct{}

func (*failingNotifier) Send(_ context.Context, _ domain.Notification) error {
	return fmt.Errorf("send failed")
}

// --- Tests ---

func TestTracingNotifier_Send_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := &mockNotifier{}
	notifier := adapter.NewTracingNotifier(inner)

	err := notifier.Send(context.Background(), domain.Notification{
		Kind:           domain.NotifyConfirmation,
		RegistrationID: "r-1",
		EventID:        "e-1",
		UserID:         "u-1",
		Status:         domain.StatusApproved,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "Notifier.Send" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "Notifier.Send")
	}

	assertAttribute(t, spans[0], "notification.kind", "registration_confirmed")
	assertAttribute(t, spans[0], "registration.id", "r-1")
	assertAttribute(t, spans[0], "event.id", "e-1")

	if len(inner.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(inner.sent))
	}
}

func TestTracingNotifier_Send_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	notifier := adapter.NewTracingNotifier(&failingNotifier{})

	err := notifier.Send(context.Background(), domain.Notification{
		Kind:           domain.NotifyPromoted,
		RegistrationID: "r-1",
	})
	if err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
}
