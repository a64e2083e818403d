package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neomorfeo/admitiq/internal/clock"
	"github.com/neomorfeo/admitiq/internal/domain"
)

// WaitlistPromoter moves waitlisted registrations into approved status
// when capacity frees up, in strict FIFO order by join time.
type WaitlistPromoter struct {
	events    domain.EventRepository
	regs      domain.RegistrationRepository
	ledger    domain.CapacityLedger
	validator domain.TransitionValidator
	notifier  domain.Notifier
	clock     clock.Clock
}

// NewWaitlistPromoter creates a promoter with the given adapters.
func NewWaitlistPromoter(
	events domain.EventRepository,
	regs domain.RegistrationRepository,
	ledger domain.CapacityLedger,
	validator domain.TransitionValidator,
	notifier domain.Notifier,
	clk clock.Clock,
) *WaitlistPromoter {
	return &WaitlistPromoter{
		events:    events,
		regs:      regs,
		ledger:    ledger,
		validator: validator,
		notifier:  notifier,
		clock:     clk,
	}
}

// PromoteNext promotes waitlist entries for the event until either the
// waitlist is empty or TryAdmit fails. Gating every promotion on
// TryAdmit makes the operation idempotent: a re-run for the same
// release finds no free slot and does nothing. A head-of-queue entry
// whose registration window has since closed is rejected in place and
// the scan continues, so one stale entry never stalls the queue.
func (p *WaitlistPromoter) PromoteNext(ctx context.Context, eventID string) error {
	event, err := p.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}

	for {
		head, err := p.regs.NextWaitlisted(ctx, eventID)
		if errors.Is(err, domain.ErrRegistrationNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading waitlist head: %w", err)
		}

		if !event.WindowOpenAt(p.clock.Now()) {
			if err := p.rejectStale(ctx, head); err != nil {
				return err
			}
			continue
		}

		admitted, err := p.ledger.TryAdmit(ctx, eventID)
		if err != nil {
			return fmt.Errorf("admitting from waitlist: %w", err)
		}
		if !admitted {
			return nil
		}

		if err := p.promote(ctx, head); err != nil {
			// Compensate so the untaken slot is not leaked.
			if relErr := p.ledger.Release(ctx, eventID); relErr != nil {
				slog.ErrorContext(ctx, "compensating release failed",
					"event_id", eventID, "error", relErr)
			}
			return err
		}
	}
}

// promote transitions a single waitlist entry to approved. The
// registration keeps its waitlist type as an audit trail.
func (p *WaitlistPromoter) promote(ctx context.Context, reg domain.Registration) error {
	newStatus, err := p.validator.Apply(ctx, reg.Status, domain.ActionPromote)
	if err != nil {
		return err
	}

	now := p.clock.Now()
	reg.Status = newStatus
	reg.ApprovalStatus = domain.ApprovalAuto
	reg.WaitlistPosition = 0
	reg.DecidedAt = now
	reg.UpdatedAt = now

	if err := p.regs.Update(ctx, reg); err != nil {
		return fmt.Errorf("updating promoted registration: %w", err)
	}

	if err := p.regs.ResequenceWaitlist(ctx, reg.EventID); err != nil {
		slog.ErrorContext(ctx, "resequencing waitlist failed",
			"event_id", reg.EventID, "error", err)
	}

	if err := p.notifier.Send(ctx, domain.Notification{
		Kind:           domain.NotifyPromoted,
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		UserID:         reg.UserID,
		Status:         reg.Status,
	}); err != nil {
		slog.ErrorContext(ctx, "enqueuing promotion notification failed",
			"registration_id", reg.ID, "error", err)
	}

	return nil
}

// rejectStale rejects a waitlist entry whose registration window has
// closed, keeping the queue moving.
func (p *WaitlistPromoter) rejectStale(ctx context.Context, reg domain.Registration) error {
	newStatus, err := p.validator.Apply(ctx, reg.Status, domain.ActionReject)
	if err != nil {
		return err
	}

	now := p.clock.Now()
	reg.Status = newStatus
	reg.CancelReason = "registration window closed"
	reg.DecidedAt = now
	reg.UpdatedAt = now

	if err := p.regs.Update(ctx, reg); err != nil {
		return fmt.Errorf("rejecting stale waitlist entry: %w", err)
	}

	if err := p.regs.ResequenceWaitlist(ctx, reg.EventID); err != nil {
		slog.ErrorContext(ctx, "resequencing waitlist failed",
			"event_id", reg.EventID, "error", err)
	}

	if err := p.notifier.Send(ctx, domain.Notification{
		Kind:           domain.NotifyRejected,
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		UserID:         reg.UserID,
		Status:         reg.Status,
	}); err != nil {
		slog.ErrorContext(ctx, "enqueuing rejection notification failed",
			"registration_id", reg.ID, "error", err)
	}

	return nil
}
