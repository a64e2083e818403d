package app

import (
	"context"
	"fmt"
	"time"

	"github.com/neomorfeo/admitiq/internal/clock"
	"github.com/neomorfeo/admitiq/internal/domain"
)

// EventService hosts the event records the registration engine admits
// into. Capacity is immutable after creation; counter mutations go
// through the ledger only.
type EventService struct {
	events domain.EventRepository
	clock  clock.Clock
}

// NewEventService creates a service with the given adapters.
func NewEventService(events domain.EventRepository, clk clock.Clock) *EventService {
	return &EventService{events: events, clock: clk}
}

// CreateEventInput carries the settings for a new event.
type CreateEventInput struct {
	Name             string
	OrganizerID      string
	CapacityMax      int
	RequiresApproval bool
	WaitlistEnabled  bool
	WindowOpen       string
	WindowClose      string
	Free             bool
	Price            float64
	Currency         string
	Coupons          []domain.Coupon
}

// Create validates and persists a new event.
func (s *EventService) Create(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	if in.Name == "" {
		return domain.Event{}, &domain.ValidationError{Reason: "event name is required"}
	}
	if in.CapacityMax <= 0 {
		return domain.Event{}, &domain.ValidationError{Reason: "capacity must be a positive integer"}
	}
	if !in.Free && in.Price <= 0 {
		return domain.Event{}, &domain.ValidationError{Reason: "paid events need a positive price"}
	}
	for _, c := range in.Coupons {
		if c.DiscountType != domain.DiscountPercentage && c.DiscountType != domain.DiscountFixed {
			return domain.Event{}, &domain.ValidationError{
				Reason: fmt.Sprintf("coupon %q has unknown discount type %q", c.Code, c.DiscountType),
			}
		}
		if c.MaxUses <= 0 {
			return domain.Event{}, &domain.ValidationError{
				Reason: fmt.Sprintf("coupon %q needs a positive max uses", c.Code),
			}
		}
	}

	event := domain.NewEvent(newID(), in.Name, in.OrganizerID, in.CapacityMax, s.clock.Now())
	event.RequiresApproval = in.RequiresApproval
	event.WaitlistEnabled = in.WaitlistEnabled
	event.Free = in.Free
	event.Price = in.Price
	event.Currency = in.Currency
	event.Coupons = in.Coupons

	var err error
	if event.WindowOpen, event.WindowClose, err = parseWindow(in.WindowOpen, in.WindowClose); err != nil {
		return domain.Event{}, err
	}

	if err := s.events.Create(ctx, event); err != nil {
		return domain.Event{}, fmt.Errorf("creating event: %w", err)
	}
	return event, nil
}

// parseWindow parses optional RFC 3339 window bounds. Empty strings
// leave that bound open.
func parseWindow(open, close string) (time.Time, time.Time, error) {
	var openAt, closeAt time.Time
	var err error

	if open != "" {
		if openAt, err = time.Parse(time.RFC3339, open); err != nil {
			return time.Time{}, time.Time{}, &domain.ValidationError{Reason: "window_open is not a valid RFC 3339 timestamp"}
		}
	}
	if close != "" {
		if closeAt, err = time.Parse(time.RFC3339, close); err != nil {
			return time.Time{}, time.Time{}, &domain.ValidationError{Reason: "window_close is not a valid RFC 3339 timestamp"}
		}
	}
	if !openAt.IsZero() && !closeAt.IsZero() && closeAt.Before(openAt) {
		return time.Time{}, time.Time{}, &domain.ValidationError{Reason: "window_close precedes window_open"}
	}
	return openAt, closeAt, nil
}

// GetByID returns an event by its unique identifier.
func (s *EventService) GetByID(ctx context.Context, id string) (domain.Event, error) {
	return s.events.GetByID(ctx, id)
}

// List returns events matching the given filter.
func (s *EventService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Event, error) {
	return s.events.List(ctx, filter)
}
