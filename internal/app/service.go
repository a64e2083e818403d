package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neomorfeo/admitiq/internal/clock"
	"github.com/neomorfeo/admitiq/internal/domain"
)

// RegistrationService orchestrates the registration lifecycle: admission,
// approval decisions, cancellation, check-in and event close-out. It is
// the sole writer of registration status; all transitions pass through
// the validator, and every slot taken or freed goes through the ledger.
type RegistrationService struct {
	events      domain.EventRepository
	regs        domain.RegistrationRepository
	ledger      domain.CapacityLedger
	validator   domain.TransitionValidator
	notifier    domain.Notifier
	payments    domain.PaymentProvider
	eligibility domain.EligibilityChecker
	promoter    *WaitlistPromoter
	clock       clock.Clock
}

// NewRegistrationService creates a service with the given adapters.
func NewRegistrationService(
	events domain.EventRepository,
	regs domain.RegistrationRepository,
	ledger domain.CapacityLedger,
	validator domain.TransitionValidator,
	notifier domain.Notifier,
	payments domain.PaymentProvider,
	eligibility domain.EligibilityChecker,
	clk clock.Clock,
) *RegistrationService {
	return &RegistrationService{
		events:      events,
		regs:        regs,
		ledger:      ledger,
		validator:   validator,
		notifier:    notifier,
		payments:    payments,
		eligibility: eligibility,
		promoter:    NewWaitlistPromoter(events, regs, ledger, validator, notifier, clk),
		clock:       clk,
	}
}

// Promoter exposes the waitlist promoter sharing this service's adapters.
func (s *RegistrationService) Promoter() *WaitlistPromoter {
	return s.promoter
}

// RegisterInput carries the optional applicant-supplied data for a
// registration attempt.
type RegisterInput struct {
	CustomFields     map[string]string
	Accommodations   string
	EmergencyContact string
	Referrer         string
	CouponCode       string
}

// RegisterForEvent admits an applicant directly, places them on the
// waitlist, or rejects the attempt.
//
// Order of checks matters: duplicates first, then window and
// eligibility, then the capacity ledger. Only a successful TryAdmit may
// produce a pending or approved record.
func (s *RegistrationService) RegisterForEvent(ctx context.Context, eventID, userID string, in RegisterInput) (domain.Registration, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return domain.Registration{}, err
	}

	if existing, err := s.regs.GetActive(ctx, eventID, userID); err == nil {
		return domain.Registration{}, &domain.DuplicateRegistrationError{
			EventID: existing.EventID,
			UserID:  userID,
		}
	} else if !errors.Is(err, domain.ErrRegistrationNotFound) {
		return domain.Registration{}, fmt.Errorf("checking existing registration: %w", err)
	}

	now := s.clock.Now()
	if !event.WindowOpenAt(now) {
		return domain.Registration{}, &domain.ValidationError{Reason: "registration window is closed"}
	}

	if err := s.eligibility.CheckEligibility(ctx, event, userID); err != nil {
		return domain.Registration{}, err
	}

	admitted, err := s.tryAdmit(ctx, eventID)
	if err != nil {
		return domain.Registration{}, err
	}

	if !admitted {
		return s.joinWaitlist(ctx, event, userID, in, now)
	}

	reg := domain.NewRegistration(newID(), eventID, userID, event.RequiresApproval, now)
	reg.Details = details(in)
	s.applyPricing(ctx, &reg, event, in.CouponCode)

	if err := s.regs.Create(ctx, reg); err != nil {
		// Compensating release: the slot was taken but the record never
		// existed, so capacity must not leak.
		if relErr := s.ledger.Release(ctx, eventID); relErr != nil {
			slog.ErrorContext(ctx, "compensating release failed",
				"event_id", eventID, "error", relErr)
		}
		return domain.Registration{}, fmt.Errorf("creating registration: %w", err)
	}

	if reg.PaymentRequired {
		s.attachPaymentLink(ctx, &reg, event)
	}

	s.notify(ctx, domain.Notification{
		Kind:           domain.NotifyConfirmation,
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		UserID:         reg.UserID,
		Status:         reg.Status,
		PaymentLink:    reg.PaymentLink,
	})

	return reg, nil
}

// tryAdmit wraps the ledger call with a single retry on a lost race.
func (s *RegistrationService) tryAdmit(ctx context.Context, eventID string) (bool, error) {
	admitted, err := s.ledger.TryAdmit(ctx, eventID)
	var conflict *domain.CapacityConflictError
	if errors.As(err, &conflict) {
		admitted, err = s.ledger.TryAdmit(ctx, eventID)
		if errors.As(err, &conflict) {
			return false, nil
		}
	}
	if err != nil {
		return false, fmt.Errorf("admitting to event: %w", err)
	}
	return admitted, nil
}

func (s *RegistrationService) joinWaitlist(ctx context.Context, event domain.Event, userID string, in RegisterInput, now time.Time) (domain.Registration, error) {
	if !event.WaitlistEnabled {
		return domain.Registration{}, &domain.ValidationError{Reason: "event is full"}
	}

	// Position 0 here: the repository assigns the real rank atomically
	// with the insert, so two concurrent joiners cannot share a position.
	reg := domain.NewWaitlistRegistration(newID(), event.ID, userID, 0, now)
	reg.Details = details(in)
	s.applyPricing(ctx, &reg, event, in.CouponCode)

	position, err := s.regs.Enqueue(ctx, reg)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("enqueuing waitlist registration: %w", err)
	}
	reg.WaitlistPosition = position

	s.notify(ctx, domain.Notification{
		Kind:             domain.NotifyWaitlistJoined,
		RegistrationID:   reg.ID,
		EventID:          reg.EventID,
		UserID:           reg.UserID,
		Status:           reg.Status,
		WaitlistPosition: reg.WaitlistPosition,
	})

	return reg, nil
}

// applyPricing freezes the financial terms on the registration. Coupon
// application is best-effort: an inactive, unknown or exhausted coupon
// only costs the discount, never the registration.
func (s *RegistrationService) applyPricing(ctx context.Context, reg *domain.Registration, event domain.Event, couponCode string) {
	if event.Free {
		return
	}

	reg.PaymentRequired = true
	reg.PaymentAmount = event.Price
	reg.Currency = event.Currency

	if couponCode == "" {
		return
	}

	coupon, ok := event.CouponByCode(couponCode)
	if !ok || !coupon.Redeemable() {
		slog.WarnContext(ctx, "coupon not applicable",
			"event_id", event.ID, "coupon", couponCode)
		return
	}

	redeemed, err := s.redeemCoupon(ctx, event.ID, couponCode)
	if err != nil {
		slog.ErrorContext(ctx, "coupon redemption failed",
			"event_id", event.ID, "coupon", couponCode, "error", err)
		return
	}
	if !redeemed {
		// Lost the race for the last remaining use.
		slog.InfoContext(ctx, "coupon exhausted",
			"event_id", event.ID, "coupon", couponCode)
		return
	}

	discount := coupon.Discount(event.Price)
	reg.DiscountApplied = discount
	reg.CouponCode = couponCode
	reg.PaymentAmount = event.Price - discount
}

// redeemCoupon wraps the ledger call with a single retry on a lost race.
func (s *RegistrationService) redeemCoupon(ctx context.Context, eventID, code string) (bool, error) {
	redeemed, err := s.ledger.RedeemCoupon(ctx, eventID, code)
	var conflict *domain.CapacityConflictError
	if errors.As(err, &conflict) {
		redeemed, err = s.ledger.RedeemCoupon(ctx, eventID, code)
		if errors.As(err, &conflict) {
			return false, nil
		}
	}
	return redeemed, err
}

func (s *RegistrationService) attachPaymentLink(ctx context.Context, reg *domain.Registration, event domain.Event) {
	link, err := s.payments.CreatePaymentLink(ctx, reg.ID, reg.PaymentAmount, reg.Currency,
		fmt.Sprintf("Registration for %s", event.Name))
	if err != nil {
		// The registration stands; the link can be regenerated later.
		slog.ErrorContext(ctx, "creating payment link failed",
			"registration_id", reg.ID, "error", err)
		return
	}

	reg.PaymentLink = link
	reg.UpdatedAt = s.clock.Now()
	if err := s.regs.Update(ctx, *reg); err != nil {
		slog.ErrorContext(ctx, "storing payment link failed",
			"registration_id", reg.ID, "error", err)
	}
}

// CancelRegistration cancels a registration on behalf of the user or
// the event organizer. Cancelling an admitted registration frees its
// slot and runs the waitlist promoter.
func (s *RegistrationService) CancelRegistration(ctx context.Context, registrationID, actorID, reason string) (domain.Registration, error) {
	reg, err := s.regs.GetByID(ctx, registrationID)
	if err != nil {
		return domain.Registration{}, err
	}

	event, err := s.events.GetByID(ctx, reg.EventID)
	if err != nil {
		return domain.Registration{}, err
	}

	if actorID != reg.UserID && actorID != event.OrganizerID {
		return domain.Registration{}, &domain.PermissionError{ActorID: actorID, Action: "cancel this registration"}
	}

	prev := reg.Status
	newStatus, err := s.validator.Apply(ctx, reg.Status, domain.ActionCancel)
	if err != nil {
		return domain.Registration{}, err
	}

	now := s.clock.Now()
	reg.Status = newStatus
	reg.CancelReason = reason
	reg.CancelledAt = now
	reg.UpdatedAt = now

	if err := s.regs.Update(ctx, reg); err != nil {
		return domain.Registration{}, fmt.Errorf("updating registration: %w", err)
	}

	switch {
	case prev.HoldsCapacity():
		s.releaseAndPromote(ctx, reg.EventID)
	case prev == domain.StatusWaitlist:
		if err := s.regs.ResequenceWaitlist(ctx, reg.EventID); err != nil {
			slog.ErrorContext(ctx, "resequencing waitlist failed",
				"event_id", reg.EventID, "error", err)
		}
	}

	s.notify(ctx, domain.Notification{
		Kind:           domain.NotifyCancelled,
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		UserID:         reg.UserID,
		Status:         reg.Status,
	})

	return reg, nil
}

// ApproveRegistration resolves a pending registration as approved. The
// slot was already taken at admission time, so no ledger call is needed.
func (s *RegistrationService) ApproveRegistration(ctx context.Context, registrationID, approverID string) (domain.Registration, error) {
	reg, err := s.regs.GetByID(ctx, registrationID)
	if err != nil {
		return domain.Registration{}, err
	}

	if err := s.requireOrganizer(ctx, reg.EventID, approverID, "approve registrations"); err != nil {
		return domain.Registration{}, err
	}

	newStatus, err := s.validator.Apply(ctx, reg.Status, domain.ActionApprove)
	if err != nil {
		return domain.Registration{}, err
	}

	now := s.clock.Now()
	reg.Status = newStatus
	reg.DecidedAt = now
	reg.UpdatedAt = now

	if err := s.regs.Update(ctx, reg); err != nil {
		return domain.Registration{}, fmt.Errorf("updating registration: %w", err)
	}

	s.notify(ctx, domain.Notification{
		Kind:           domain.NotifyApproved,
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		UserID:         reg.UserID,
		Status:         reg.Status,
	})

	return reg, nil
}

// RejectRegistration resolves a pending registration as rejected,
// freeing the slot it held and running the promoter.
func (s *RegistrationService) RejectRegistration(ctx context.Context, registrationID, rejectorID, reason string) (domain.Registration, error) {
	reg, err := s.regs.GetByID(ctx, registrationID)
	if err != nil {
		return domain.Registration{}, err
	}

	if err := s.requireOrganizer(ctx, reg.EventID, rejectorID, "reject registrations"); err != nil {
		return domain.Registration{}, err
	}

	prev := reg.Status
	newStatus, err := s.validator.Apply(ctx, reg.Status, domain.ActionReject)
	if err != nil {
		return domain.Registration{}, err
	}

	now := s.clock.Now()
	reg.Status = newStatus
	reg.CancelReason = reason
	reg.DecidedAt = now
	reg.UpdatedAt = now

	if err := s.regs.Update(ctx, reg); err != nil {
		return domain.Registration{}, fmt.Errorf("updating registration: %w", err)
	}

	switch {
	case prev.HoldsCapacity():
		s.releaseAndPromote(ctx, reg.EventID)
	case prev == domain.StatusWaitlist:
		if err := s.regs.ResequenceWaitlist(ctx, reg.EventID); err != nil {
			slog.ErrorContext(ctx, "resequencing waitlist failed",
				"event_id", reg.EventID, "error", err)
		}
	}

	s.notify(ctx, domain.Notification{
		Kind:           domain.NotifyRejected,
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		UserID:         reg.UserID,
		Status:         reg.Status,
	})

	return reg, nil
}

// CheckIn records attendance for an approved registration.
func (s *RegistrationService) CheckIn(ctx context.Context, registrationID, method, location string) (domain.Registration, error) {
	reg, err := s.regs.GetByID(ctx, registrationID)
	if err != nil {
		return domain.Registration{}, err
	}

	newStatus, err := s.validator.Apply(ctx, reg.Status, domain.ActionCheckIn)
	if err != nil {
		return domain.Registration{}, err
	}

	now := s.clock.Now()
	reg.Status = newStatus
	reg.CheckInMethod = method
	reg.CheckInLocation = location
	reg.CheckedInAt = now
	reg.UpdatedAt = now

	if err := s.regs.Update(ctx, reg); err != nil {
		return domain.Registration{}, fmt.Errorf("updating registration: %w", err)
	}

	return reg, nil
}

// MarkNoShow closes out a single approved registration that never
// checked in, freeing its slot.
func (s *RegistrationService) MarkNoShow(ctx context.Context, registrationID string) (domain.Registration, error) {
	reg, err := s.regs.GetByID(ctx, registrationID)
	if err != nil {
		return domain.Registration{}, err
	}

	prev := reg.Status
	newStatus, err := s.validator.Apply(ctx, reg.Status, domain.ActionMarkNoShow)
	if err != nil {
		return domain.Registration{}, err
	}

	reg.Status = newStatus
	reg.UpdatedAt = s.clock.Now()

	if err := s.regs.Update(ctx, reg); err != nil {
		return domain.Registration{}, fmt.Errorf("updating registration: %w", err)
	}

	if prev.HoldsCapacity() {
		s.releaseAndPromote(ctx, reg.EventID)
	}

	return reg, nil
}

// CloseOutResult reports the outcome of one registration in a bulk
// close-out.
type CloseOutResult struct {
	RegistrationID string
	Err            error
}

// CloseOutEvent marks every still-approved registration of an event as
// no_show. Each item succeeds or fails independently; partial failure
// is expected and reported per item.
func (s *RegistrationService) CloseOutEvent(ctx context.Context, eventID string) ([]CloseOutResult, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	status := domain.StatusApproved
	approved, err := s.regs.ListByEvent(ctx, eventID, domain.ListFilter{Status: &status})
	if err != nil {
		return nil, fmt.Errorf("listing approved registrations: %w", err)
	}

	results := make([]CloseOutResult, 0, len(approved))
	for _, reg := range approved {
		_, err := s.MarkNoShow(ctx, reg.ID)
		results = append(results, CloseOutResult{RegistrationID: reg.ID, Err: err})
	}
	return results, nil
}

// GetRegistration returns a registration by ID.
func (s *RegistrationService) GetRegistration(ctx context.Context, id string) (domain.Registration, error) {
	return s.regs.GetByID(ctx, id)
}

// ListRegistrations returns an event's registrations matching the filter.
func (s *RegistrationService) ListRegistrations(ctx context.Context, eventID string, filter domain.ListFilter) ([]domain.Registration, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.regs.ListByEvent(ctx, eventID, filter)
}

func (s *RegistrationService) requireOrganizer(ctx context.Context, eventID, actorID, action string) error {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if actorID != event.OrganizerID {
		return &domain.PermissionError{ActorID: actorID, Action: action}
	}
	return nil
}

func (s *RegistrationService) releaseAndPromote(ctx context.Context, eventID string) {
	if err := s.ledger.Release(ctx, eventID); err != nil {
		slog.ErrorContext(ctx, "releasing slot failed", "event_id", eventID, "error", err)
		return
	}
	if err := s.promoter.PromoteNext(ctx, eventID); err != nil {
		slog.ErrorContext(ctx, "waitlist promotion failed", "event_id", eventID, "error", err)
	}
}

// notify enqueues a notification; failures are logged, never returned.
func (s *RegistrationService) notify(ctx context.Context, n domain.Notification) {
	if err := s.notifier.Send(ctx, n); err != nil {
		slog.ErrorContext(ctx, "enqueuing notification failed",
			"kind", string(n.Kind), "registration_id", n.RegistrationID, "error", err)
	}
}

func details(in RegisterInput) domain.Details {
	return domain.Details{
		CustomFields:     in.CustomFields,
		Accommodations:   in.Accommodations,
		EmergencyContact: in.EmergencyContact,
		Referrer:         in.Referrer,
	}
}
