package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/neomorfeo/admitiq/internal/domain"
)

// Compile-time check: RegistrationRepository implements
// domain.RegistrationRepository.
var _ domain.RegistrationRepository = (*RegistrationRepository)(nil)

// RegistrationRepository implements domain.RegistrationRepository using
// SQLite.
type RegistrationRepository struct {
	db *sql.DB
}

const registrationColumns = `id, event_id, user_id, status, reg_type, approval_status,
	waitlist_position, waitlist_joined_at,
	payment_required, payment_amount, discount_applied, coupon_code, currency, payment_link,
	details, check_in_method, check_in_location, cancel_reason,
	created_at, updated_at, decided_at, cancelled_at, checked_in_at`

func (r *RegistrationRepository) Create(ctx context.Context, reg domain.Registration) error {
	detailsJSON, err := json.Marshal(reg.Details)
	if err != nil {
		return fmt.Errorf("encoding details: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO registrations (`+registrationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.ID, reg.EventID, reg.UserID, string(reg.Status), string(reg.Type), string(reg.ApprovalStatus),
		reg.WaitlistPosition, formatTime(reg.WaitlistJoinedAt),
		boolToInt(reg.PaymentRequired), reg.PaymentAmount, reg.DiscountApplied, reg.CouponCode, reg.Currency, reg.PaymentLink,
		string(detailsJSON), reg.CheckInMethod, reg.CheckInLocation, reg.CancelReason,
		formatTime(reg.CreatedAt), formatTime(reg.UpdatedAt), formatTime(reg.DecidedAt),
		formatTime(reg.CancelledAt), formatTime(reg.CheckedInAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.DuplicateRegistrationError{EventID: reg.EventID, UserID: reg.UserID}
		}
		return fmt.Errorf("inserting registration: %w", err)
	}
	return nil
}

// Enqueue inserts a waitlist registration with the position computed
// inside the INSERT. The scalar subquery and the insert execute as one
// statement, so concurrent joiners cannot observe the same queue length.
func (r *RegistrationRepository) Enqueue(ctx context.Context, reg domain.Registration) (int, error) {
	detailsJSON, err := json.Marshal(reg.Details)
	if err != nil {
		return 0, fmt.Errorf("encoding details: %w", err)
	}

	var position int
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO registrations (`+registrationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?,
		         (SELECT COUNT(*) + 1 FROM registrations WHERE event_id = ? AND status = 'waitlist'),
		         ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING waitlist_position`,
		reg.ID, reg.EventID, reg.UserID, string(reg.Status), string(reg.Type), string(reg.ApprovalStatus),
		reg.EventID, formatTime(reg.WaitlistJoinedAt),
		boolToInt(reg.PaymentRequired), reg.PaymentAmount, reg.DiscountApplied, reg.CouponCode, reg.Currency, reg.PaymentLink,
		string(detailsJSON), reg.CheckInMethod, reg.CheckInLocation, reg.CancelReason,
		formatTime(reg.CreatedAt), formatTime(reg.UpdatedAt), formatTime(reg.DecidedAt),
		formatTime(reg.CancelledAt), formatTime(reg.CheckedInAt),
	).Scan(&position)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, &domain.DuplicateRegistrationError{EventID: reg.EventID, UserID: reg.UserID}
		}
		return 0, fmt.Errorf("enqueuing registration: %w", err)
	}
	return position, nil
}

func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (domain.Registration, error) {
	return r.scanRegistration(r.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id,
	))
}

func (r *RegistrationRepository) GetActive(ctx context.Context, eventID, userID string) (domain.Registration, error) {
	return r.scanRegistration(r.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE event_id = ? AND user_id = ? AND status NOT IN ('rejected', 'cancelled')`,
		eventID, userID,
	))
}

func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string, filter domain.ListFilter) ([]domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = ?`
	args := []any{eventID}

	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}

	query += ` ORDER BY created_at ASC`

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
		return nil, fmt.Errorf("listing registrations: %w", err)
	}
	defer rows.Close()

	var regs []domain.Registration
	for rows.Next() {
		reg, err := r.scanRegistrationFromRows(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (r *RegistrationRepository) Update(ctx context.Context, reg domain.Registration) error {
	detailsJSON, err := json.Marshal(reg.Details)
	if err != nil {
		return fmt.Errorf("encoding details: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE registrations SET
		    status = ?, reg_type = ?, approval_status = ?,
		    waitlist_position = ?, waitlist_joined_at = ?,
		    payment_required = ?, payment_amount = ?, discount_applied = ?,
		    coupon_code = ?, currency = ?, payment_link = ?,
		    details = ?, check_in_method = ?, check_in_location = ?, cancel_reason = ?,
		    updated_at = ?, decided_at = ?, cancelled_at = ?, checked_in_at = ?
		 WHERE id = ?`,
		string(reg.Status), string(reg.Type), string(reg.ApprovalStatus),
		reg.WaitlistPosition, formatTime(reg.WaitlistJoinedAt),
		boolToInt(reg.PaymentRequired), reg.PaymentAmount, reg.DiscountApplied,
		reg.CouponCode, reg.Currency, reg.PaymentLink,
		string(detailsJSON), reg.CheckInMethod, reg.CheckInLocation, reg.CancelReason,
		formatTime(reg.UpdatedAt), formatTime(reg.DecidedAt),
		formatTime(reg.CancelledAt), formatTime(reg.CheckedInAt),
		reg.ID,
	)
	if err != nil {
		return fmt.Errorf("updating registration: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrRegistrationNotFound
	}
	return nil
}

func (r *RegistrationRepository) CountWaitlist(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = ? AND status = 'waitlist'`,
		eventID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting waitlist: %w", err)
	}
	return count, nil
}

func (r *RegistrationRepository) NextWaitlisted(ctx context.Context, eventID string) (domain.Registration, error) {
	return r.scanRegistration(r.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE event_id = ? AND status = 'waitlist'
		 ORDER BY waitlist_position ASC, waitlist_joined_at ASC
		 LIMIT 1`,
		eventID,
	))
}

func (r *RegistrationRepository) ResequenceWaitlist(ctx context.Context, eventID string) error {
	// Window function keeps the rewrite a single statement; positions
	// come out contiguous from 1 ordered by join time.
	_, err := r.db.ExecContext(ctx,
		`WITH ranked AS (
		    SELECT id, ROW_NUMBER() OVER (ORDER BY waitlist_joined_at ASC, created_at ASC) AS rn
		    FROM registrations
		    WHERE event_id = ? AND status = 'waitlist'
		 )
		 UPDATE registrations
		 SET waitlist_position = (SELECT rn FROM ranked WHERE ranked.id = registrations.id)
		 WHERE id IN (SELECT id FROM ranked)`,
		eventID,
	)
	if err != nil {
		return fmt.Errorf("resequencing waitlist: %w", err)
	}
	return nil
}

func (r *RegistrationRepository) WaitlistPosition(ctx context.Context, eventID, userID string) (int, error) {
	var position int
	err := r.db.QueryRowContext(ctx,
		`SELECT waitlist_position FROM registrations
		 WHERE event_id = ? AND user_id = ? AND status = 'waitlist'`,
		eventID, userID,
	).Scan(&position)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, domain.ErrRegistrationNotFound
		}
		return 0, fmt.Errorf("reading waitlist position: %w", err)
	}
	return position, nil
}

func (r *RegistrationRepository) CountsByStatus(ctx context.Context, eventID string) (map[domain.Status]int, error) {
	return r.groupedCounts(ctx,
		`SELECT status, COUNT(*) FROM registrations WHERE event_id = ? GROUP BY status`,
		eventID,
	)
}

func (r *RegistrationRepository) CountsByUser(ctx context.Context, userID string) (map[domain.Status]int, error) {
	return r.groupedCounts(ctx,
		`SELECT status, COUNT(*) FROM registrations WHERE user_id = ? GROUP BY status`,
		userID,
	)
}

func (r *RegistrationRepository) groupedCounts(ctx context.Context, query string, arg any) (map[domain.Status]int, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("counting registrations: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[domain.Status(status)] = count
	}
	return counts, rows.Err()
}

func (r *RegistrationRepository) scanRegistration(row *sql.Row) (domain.Registration, error) {
	var reg domain.Registration
	var status, regType, approvalStatus string
	var waitlistJoinedAt, detailsJSON string
	var paymentRequired int
	var createdAt, updatedAt, decidedAt, cancelledAt, checkedInAt string

	err := row.Scan(&reg.ID, &reg.EventID, &reg.UserID, &status, &regType, &approvalStatus,
		&reg.WaitlistPosition, &waitlistJoinedAt,
		&paymentRequired, &reg.PaymentAmount, &reg.DiscountApplied, &reg.CouponCode, &reg.Currency, &reg.PaymentLink,
		&detailsJSON, &reg.CheckInMethod, &reg.CheckInLocation, &reg.CancelReason,
		&createdAt, &updatedAt, &decidedAt, &cancelledAt, &checkedInAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Registration{}, domain.ErrRegistrationNotFound
		}
		return domain.Registration{}, fmt.Errorf("scanning registration: %w", err)
	}

	fillRegistration(&reg, status, regType, approvalStatus, waitlistJoinedAt, detailsJSON,
		paymentRequired, createdAt, updatedAt, decidedAt, cancelledAt, checkedInAt)
	return reg, nil
}

func (r *RegistrationRepository) scanRegistrationFromRows(rows *sql.Rows) (domain.Registration, error) {
	var reg domain.Registration
	var status, regType, approvalStatus string
	var waitlistJoinedAt, detailsJSON string
	var paymentRequired int
	var createdAt, updatedAt, decidedAt, cancelledAt, checkedInAt string

	err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserID, &status, &regType, &approvalStatus,
		&reg.WaitlistPosition, &waitlistJoinedAt,
		&paymentRequired, &reg.PaymentAmount, &reg.DiscountApplied, &reg.CouponCode, &reg.Currency, &reg.PaymentLink,
		&detailsJSON, &reg.CheckInMethod, &reg.CheckInLocation, &reg.CancelReason,
		&createdAt, &updatedAt, &decidedAt, &cancelledAt, &checkedInAt)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("scanning registration row: %w", err)
	}

	fillRegistration(&reg, status, regType, approvalStatus, waitlistJoinedAt, detailsJSON,
		paymentRequired, createdAt, updatedAt, decidedAt, cancelledAt, checkedInAt)
	return reg, nil
}

func fillRegistration(reg *domain.Registration,
	status, regType, approvalStatus, waitlistJoinedAt, detailsJSON string,
	paymentRequired int,
	createdAt, updatedAt, decidedAt, cancelledAt, checkedInAt string,
) {
	reg.Status = domain.Status(status)
	reg.Type = domain.RegistrationType(regType)
	reg.ApprovalStatus = domain.ApprovalStatus(approvalStatus)
	reg.WaitlistJoinedAt = parseTime(waitlistJoinedAt)
	reg.PaymentRequired = paymentRequired != 0
	reg.CreatedAt = parseTime(createdAt)
	reg.UpdatedAt = parseTime(updatedAt)
	reg.DecidedAt = parseTime(decidedAt)
	reg.CancelledAt = parseTime(cancelledAt)
	reg.CheckedInAt = parseTime(checkedInAt)

	_ = json.Unmarshal([]byte(detailsJSON), &reg.Details)
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint
// violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
