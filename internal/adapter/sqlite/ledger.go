package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/neomorfeo/admitiq/internal/domain"
)

// Compile-time check: CapacityLedger implements domain.CapacityLedger.
var _ domain.CapacityLedger = (*CapacityLedger)(nil)

// CapacityLedger implements domain.CapacityLedger with conditional
// updates. The database applies each UPDATE atomically, so two
// concurrent TryAdmit calls against the last remaining slot resolve to
// exactly one affected row; the same holds for a coupon's last use.
type CapacityLedger struct {
	db *sql.DB
}

func (l *CapacityLedger) TryAdmit(ctx context.Context, eventID string) (bool, error) {
	result, err := l.db.ExecContext(ctx,
		`UPDATE events SET admitted_count = admitted_count + 1
		 WHERE id = ? AND admitted_count < capacity_max`,
		eventID,
	)
	if err != nil {
		if isBusy(err) {
			return false, &domain.CapacityConflictError{EventID: eventID}
		}
		return false, fmt.Errorf("incrementing admitted count: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 1 {
		return true, nil
	}

	// Either the event does not exist or it is full; distinguish so a
	// typo'd event id does not masquerade as a full event.
	if err := l.eventExists(ctx, eventID); err != nil {
		return false, err
	}
	return false, nil
}

func (l *CapacityLedger) Release(ctx context.Context, eventID string) error {
	// Floored at zero. Release below zero indicates a double release
	// upstream; the floor keeps the counter consistent regardless.
	result, err := l.db.ExecContext(ctx,
		`UPDATE events SET admitted_count = admitted_count - 1
		 WHERE id = ? AND admitted_count > 0`,
		eventID,
	)
	if err != nil {
		if isBusy(err) {
			return &domain.CapacityConflictError{EventID: eventID}
		}
		return fmt.Errorf("decrementing admitted count: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return l.eventExists(ctx, eventID)
	}
	return nil
}

func (l *CapacityLedger) RedeemCoupon(ctx context.Context, eventID, code string) (bool, error) {
	result, err := l.db.ExecContext(ctx,
		`UPDATE coupons SET used_count = used_count + 1
		 WHERE event_id = ? AND code = ? AND active = 1 AND used_count < max_uses`,
		eventID, code,
	)
	if err != nil {
		if isBusy(err) {
			return false, &domain.CapacityConflictError{EventID: eventID}
		}
		return false, fmt.Errorf("incrementing coupon use: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return rows == 1, nil
}

func (l *CapacityLedger) eventExists(ctx context.Context, eventID string) error {
	var one int
	err := l.db.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, eventID).Scan(&one)
	if err == sql.ErrNoRows {
		return domain.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("checking event existence: %w", err)
	}
	return nil
}

// isBusy checks if a SQLite error is a lock contention error
// (SQLITE_BUSY / SQLITE_LOCKED).
func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
