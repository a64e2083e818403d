package otel_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	adapter "github.com/neomorfeo/admitiq/internal/adapter/otel"
	"github.com/neomorfeo/admitiq/internal/domain"
)

// --- Test tracer setup ---

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter
}

// --- Mock ledger ---

type mockLedger struct {
	capacity map[string]int
	admitted map[string]int
	coupons  map[string]int // remaining uses, keyed eventID+"/"+code
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		capacity: make(map[string]int),
		admitted: make(map[string]int),
		coupons:  make(map[string]int),
	}
}

func (m *mockLedger) TryAdmit(_ context.Context, eventID string) (bool, error) {
	capMax, ok := m.capacity[eventID]
	if !ok {
		return false, domain.ErrEventNotFound
	}
	if m.admitted[eventID] >= capMax {
		return false, nil
	}
	m.admitted[eventID]++
	return true, nil
}

func (m *mockLedger) Release(_ context.Context, eventID string) error {
	if _, ok := m.capacity[eventID]; !ok {
		return domain.ErrEventNotFound
	}
	if m.admitted[eventID] > 0 {
		m.admitted[eventID]--
	}
	return nil
}

func (m *mockLedger) RedeemCoupon(_ context.Context, eventID, code string) (bool, error) {
	key := eventID + "/" + code
	if m.coupons[key] <= 0 {
		return false, nil
	}
	m.coupons[key]--
	return true, nil
}

// --- Tests ---

func TestTracingLedger_TryAdmit_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockLedger()
	inner.capacity["e-1"] = 10
	ledger := adapter.NewTracingLedger(inner)

	admitted, err := ledger.TryAdmit(context.Background(), "e-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !admitted {
		t.Error("TryAdmit = false, want true")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "CapacityLedger.TryAdmit" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "CapacityLedger.TryAdmit")
	}

	assertAttribute(t, spans[0], "event.id", "e-1")
	assertAttribute(t, spans[0], "ledger.admitted", "true")
}

func TestTracingLedger_TryAdmit_FullRecordsOutcome(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockLedger()
	inner.capacity["e-1"] = 1
	inner.admitted["e-1"] = 1
	ledger := adapter.NewTracingLedger(inner)

	admitted, err := ledger.TryAdmit(context.Background(), "e-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if admitted {
		t.Error("TryAdmit = true, want false for full event")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	assertAttribute(t, spans[0], "ledger.admitted", "false")
}

func TestTracingLedger_TryAdmit_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	ledger := adapter.NewTracingLedger(newMockLedger())

	_, err := ledger.TryAdmit(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected error event on span")
	}
}

func TestTracingLedger_Release_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockLedger()
	inner.capacity["e-1"] = 10
	inner.admitted["e-1"] = 3
	ledger := adapter.NewTracingLedger(inner)

	if err := ledger.Release(context.Background(), "e-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.admitted["e-1"] != 2 {
		t.Errorf("admitted = %d, want 2", inner.admitted["e-1"])
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "CapacityLedger.Release" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "CapacityLedger.Release")
	}
	assertAttribute(t, spans[0], "event.id", "e-1")
}

func TestTracingLedger_RedeemCoupon_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockLedger()
	inner.capacity["e-1"] = 10
	inner.coupons["e-1/SAVE10"] = 1
	ledger := adapter.NewTracingLedger(inner)

	redeemed, err := ledger.RedeemCoupon(context.Background(), "e-1", "SAVE10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !redeemed {
		t.Error("RedeemCoupon = false, want true")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "CapacityLedger.RedeemCoupon" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "CapacityLedger.RedeemCoupon")
	}
	assertAttribute(t, spans[0], "coupon.code", "SAVE10")
	assertAttribute(t, spans[0], "coupon.redeemed", "true")
}

// assertAttribute checks that a span has an attribute with the given key and string value.
func assertAttribute(t *testing.T, span tracetest.SpanStub, key, want string) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			got := attr.Value.Emit()
			if got != want {
				t.Errorf("attribute %q = %q, want %q", key, got, want)
			}
			return
		}
	}
	t.Errorf("attribute %q not found on span %q", key, span.Name)
}
