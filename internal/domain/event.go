package domain

import "time"

// DiscountType selects how a coupon's value is applied.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon is a discount code attached to a paid event. UsedCount is
// mutated only through the capacity ledger's atomic redemption.
type Coupon struct {
	Code          string
	DiscountType  DiscountType
	DiscountValue float64
	MaxUses       int
	UsedCount     int
	Active        bool
}

// Redeemable reports whether the coupon can still be applied.
func (c Coupon) Redeemable() bool {
	return c.Active && c.UsedCount < c.MaxUses
}

// Discount computes the discount for the given amount, clamped to
// [0, amount].
func (c Coupon) Discount(amount float64) float64 {
	var d float64
	switch c.DiscountType {
	case DiscountPercentage:
		d = amount * c.DiscountValue / 100
	case DiscountFixed:
		d = c.DiscountValue
	}
	if d < 0 {
		return 0
	}
	if d > amount {
		return amount
	}
	return d
}

// Event is a capacity-constrained event users register for. The
// admitted count is owned by the capacity ledger; no other component
// mutates it.
type Event struct {
	ID          string
	Name        string
	OrganizerID string

	CapacityMax   int
	AdmittedCount int

	RequiresApproval bool
	WaitlistEnabled  bool
	WindowOpen       time.Time
	WindowClose      time.Time

	Free     bool
	Price    float64
	Currency string
	Coupons  []Coupon

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewEvent creates an event with its admitted count at zero.
func NewEvent(id, name, organizerID string, capacityMax int, now time.Time) Event {
	return Event{
		ID:            id,
		Name:          name,
		OrganizerID:   organizerID,
		CapacityMax:   capacityMax,
		AdmittedCount: 0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Remaining returns the number of available slots.
func (e Event) Remaining() int {
	return e.CapacityMax - e.AdmittedCount
}

// IsFull returns true when no slots remain.
func (e Event) IsFull() bool {
	return e.AdmittedCount >= e.CapacityMax
}

// WindowOpenAt reports whether registration is accepted at the given
// instant. A zero WindowOpen or WindowClose leaves that bound open.
func (e Event) WindowOpenAt(now time.Time) bool {
	if !e.WindowOpen.IsZero() && now.Before(e.WindowOpen) {
		return false
	}
	if !e.WindowClose.IsZero() && now.After(e.WindowClose) {
		return false
	}
	return true
}

// CouponByCode returns the coupon with the given code, if any.
func (e Event) CouponByCode(code string) (Coupon, bool) {
	for _, c := range e.Coupons {
		if c.Code == code {
			return c, true
		}
	}
	return Coupon{}, false
}
