package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/admitiq/internal/domain"
)

const tracerName = "github.com/neomorfeo/admitiq/internal/adapter/otel"

// TracingLedger wraps a domain.CapacityLedger with OpenTelemetry
// tracing. The ledger is the contention point of the whole engine, so
// every admit/release/redeem gets a span with its outcome.
type TracingLedger struct {
	next   domain.CapacityLedger
	tracer trace.Tracer
}

// Compile-time check: TracingLedger implements domain.CapacityLedger.
var _ domain.CapacityLedger = (*TracingLedger)(nil)

// NewTracingLedger creates a tracing decorator around the given ledger.
func NewTracingLedger(next domain.CapacityLedger) *TracingLedger {
	return &TracingLedger{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (l *TracingLedger) TryAdmit(ctx context.Context, eventID string) (bool, error) {
	ctx, span := l.tracer.Start(ctx, "CapacityLedger.TryAdmit",
		trace.WithAttributes(attribute.String("event.id", eventID)),
	)
	defer span.End()

	admitted, err := l.next.TryAdmit(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Bool("ledger.admitted", admitted))
	}
	return admitted, err
}

func (l *TracingLedger) Release(ctx context.Context, eventID string) error {
	ctx, span := l.tracer.Start(ctx, "CapacityLedger.Release",
		trace.WithAttributes(attribute.String("event.id", eventID)),
	)
	defer span.End()

	err := l.next.Release(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (l *TracingLedger) RedeemCoupon(ctx context.Context, eventID, code string) (bool, error) {
	ctx, span := l.tracer.Start(ctx, "CapacityLedger.RedeemCoupon",
		trace.WithAttributes(
			attribute.String("event.id", eventID),
			attribute.String("coupon.code", code),
		),
	)
	defer span.End()

	redeemed, err := l.next.RedeemCoupon(ctx, eventID, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Bool("coupon.redeemed", redeemed))
	}
	return redeemed, err
}
