package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/neomorfeo/admitiq/internal/domain"
)

// Compile-time check: EventRepository implements domain.EventRepository.
var _ domain.EventRepository = (*EventRepository)(nil)

// EventRepository implements domain.EventRepository using SQLite.
type EventRepository struct {
	db *sql.DB
}

func (r *EventRepository) Create(ctx context.Context, e domain.Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (id, name, organizer_id, capacity_max, admitted_count,
		                     requires_approval, waitlist_enabled, window_open, window_close,
		                     free, price, currency, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.OrganizerID, e.CapacityMax, e.AdmittedCount,
		boolToInt(e.RequiresApproval), boolToInt(e.WaitlistEnabled),
		formatTime(e.WindowOpen), formatTime(e.WindowClose),
		boolToInt(e.Free), e.Price, e.Currency,
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	for _, c := range e.Coupons {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO coupons (event_id, code, discount_type, discount_value, max_uses, used_count, active)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, c.Code, string(c.DiscountType), c.DiscountValue, c.MaxUses, c.UsedCount, boolToInt(c.Active),
		)
		if err != nil {
			return fmt.Errorf("inserting coupon %q: %w", c.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing event: %w", err)
	}
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (domain.Event, error) {
	e, err := r.scanEvent(r.db.QueryRowContext(ctx,
		`SELECT id, name, organizer_id, capacity_max, admitted_count,
		        requires_approval, waitlist_enabled, window_open, window_close,
		        free, price, currency, created_at, updated_at
		 FROM events WHERE id = ?`, id,
	))
	if err != nil {
		return domain.Event{}, err
	}

	e.Coupons, err = r.loadCoupons(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	return e, nil
}

func (r *EventRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Event, error) {
	query := `SELECT id, name, organizer_id, capacity_max, admitted_count,
	                 requires_approval, waitlist_enabled, window_open, window_close,
	                 free, price, currency, created_at, updated_at
	          FROM events ORDER BY created_at DESC`
	var args []any

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := r.scanEventFromRows(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *EventRepository) loadCoupons(ctx context.Context, eventID string) ([]domain.Coupon, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT code, discount_type, discount_value, max_uses, used_count, active
		 FROM coupons WHERE event_id = ? ORDER BY code`, eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading coupons: %w", err)
	}
	defer rows.Close()

	var coupons []domain.Coupon
	for rows.Next() {
		var c domain.Coupon
		var discountType string
		var active int
		if err := rows.Scan(&c.Code, &discountType, &c.DiscountValue, &c.MaxUses, &c.UsedCount, &active); err != nil {
			return nil, fmt.Errorf("scanning coupon: %w", err)
		}
		c.DiscountType = domain.DiscountType(discountType)
		c.Active = active != 0
		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

func (r *EventRepository) scanEvent(row *sql.Row) (domain.Event, error) {
	var e domain.Event
	var requiresApproval, waitlistEnabled, free int
	var windowOpen, windowClose, createdAt, updatedAt string

	err := row.Scan(&e.ID, &e.Name, &e.OrganizerID, &e.CapacityMax, &e.AdmittedCount,
		&requiresApproval, &waitlistEnabled, &windowOpen, &windowClose,
		&free, &e.Price, &e.Currency, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("scanning event: %w", err)
	}

	e.RequiresApproval = requiresApproval != 0
	e.WaitlistEnabled = waitlistEnabled != 0
	e.Free = free != 0
	e.WindowOpen = parseTime(windowOpen)
	e.WindowClose = parseTime(windowClose)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return e, nil
}

func (r *EventRepository) scanEventFromRows(rows *sql.Rows) (domain.Event, error) {
	var e domain.Event
	var requiresApproval, waitlistEnabled, free int
	var windowOpen, windowClose, createdAt, updatedAt string

	err := rows.Scan(&e.ID, &e.Name, &e.OrganizerID, &e.CapacityMax, &e.AdmittedCount,
		&requiresApproval, &waitlistEnabled, &windowOpen, &windowClose,
		&free, &e.Price, &e.Currency, &createdAt, &updatedAt)
	if err != nil {
		return domain.Event{}, fmt.Errorf("scanning event row: %w", err)
	}

	e.RequiresApproval = requiresApproval != 0
	e.WaitlistEnabled = waitlistEnabled != 0
	e.Free = free != 0
	e.WindowOpen = parseTime(windowOpen)
	e.WindowClose = parseTime(windowClose)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// formatTime stores timestamps as UTC strings; the zero time becomes
// the empty string.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(timeFormat, s)
	return t
}
