package domain_test

import (
	"testing"
	"time"

	"github.com/neomorfeo/admitiq/internal/domain"
)

func TestEvent_RemainingAndFull(t *testing.T) {
	event := domain.Event{CapacityMax: 3, AdmittedCount: 2}
	if got := event.Remaining(); got != 1 {
		t.Errorf("Remaining() = %d, want 1", got)
	}
	if event.IsFull() {
		t.Error("IsFull() = true, want false")
	}

	event.AdmittedCount = 3
	if !event.IsFull() {
		t.Error("IsFull() = false, want true")
	}
}

func TestEvent_WindowOpenAt(t *testing.T) {
	open := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	close := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		event domain.Event
		at    time.Time
		want  bool
	}{
		{"no bounds", domain.Event{}, time.Now(), true},
		{"before open", domain.Event{WindowOpen: open}, open.Add(-time.Minute), false},
		{"at open", domain.Event{WindowOpen: open}, open, true},
		{"within", domain.Event{WindowOpen: open, WindowClose: close}, open.Add(time.Hour), true},
		{"at close", domain.Event{WindowClose: close}, close, true},
		{"after close", domain.Event{WindowClose: close}, close.Add(time.Minute), false},
		{"only close, early", domain.Event{WindowClose: close}, open, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.event.WindowOpenAt(tc.at); got != tc.want {
				t.Errorf("WindowOpenAt(%v) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestCoupon_Redeemable(t *testing.T) {
	cases := []struct {
		name   string
		coupon domain.Coupon
		want   bool
	}{
		{"fresh", domain.Coupon{Active: true, MaxUses: 5, UsedCount: 0}, true},
		{"last use left", domain.Coupon{Active: true, MaxUses: 5, UsedCount: 4}, true},
		{"exhausted", domain.Coupon{Active: true, MaxUses: 5, UsedCount: 5}, false},
		{"inactive", domain.Coupon{Active: false, MaxUses: 5, UsedCount: 0}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.coupon.Redeemable(); got != tc.want {
				t.Errorf("Redeemable() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCoupon_Discount(t *testing.T) {
	cases := []struct {
		name   string
		coupon domain.Coupon
		amount float64
		want   float64
	}{
		{"percentage", domain.Coupon{DiscountType: domain.DiscountPercentage, DiscountValue: 10}, 200, 20},
		{"fixed", domain.Coupon{DiscountType: domain.DiscountFixed, DiscountValue: 25}, 100, 25},
		{"fixed above amount clamps", domain.Coupon{DiscountType: domain.DiscountFixed, DiscountValue: 150}, 100, 100},
		{"percentage over 100 clamps", domain.Coupon{DiscountType: domain.DiscountPercentage, DiscountValue: 150}, 100, 100},
		{"negative value clamps to zero", domain.Coupon{DiscountType: domain.DiscountFixed, DiscountValue: -5}, 100, 0},
		{"unknown type", domain.Coupon{DiscountType: "bogus", DiscountValue: 50}, 100, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.coupon.Discount(tc.amount); got != tc.want {
				t.Errorf("Discount(%v) = %v, want %v", tc.amount, got, tc.want)
			}
		})
	}
}

func TestEvent_CouponByCode(t *testing.T) {
	event := domain.Event{Coupons: []domain.Coupon{
		{Code: "SAVE10"},
		{Code: "OFF25"},
	}}

	c, ok := event.CouponByCode("OFF25")
	if !ok {
		t.Fatal("CouponByCode(OFF25) not found")
	}
	if c.Code != "OFF25" {
		t.Errorf("Code = %q, want %q", c.Code, "OFF25")
	}

	if _, ok := event.CouponByCode("NOPE"); ok {
		t.Error("CouponByCode(NOPE) found, want miss")
	}
}
