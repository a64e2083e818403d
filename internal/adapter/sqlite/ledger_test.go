package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/neomorfeo/admitiq/internal/domain"
)

func TestCapacityLedger_TryAdmit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedEvent(t, store, domain.Event{
		ID: "ev-1", Name: "x", OrganizerID: "org-1", CapacityMax: 2, Free: true,
	})

	for i := 0; i < 2; i++ {
		admitted, err := store.Ledger.TryAdmit(ctx, "ev-1")
		if err != nil {
			t.Fatalf("TryAdmit %d failed: %v", i, err)
		}
		if !admitted {
			t.Fatalf("TryAdmit %d = false, want true", i)
		}
	}

	// Third attempt finds the event full.
	admitted, err := store.Ledger.TryAdmit(ctx, "ev-1")
	if err != nil {
		t.Fatalf("TryAdmit failed: %v", err)
	}
	if admitted {
		t.Error("TryAdmit = true past capacity, want false")
	}

	event, err := store.Events.GetByID(ctx, "ev-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if event.AdmittedCount != 2 {
		t.Errorf("AdmittedCount = %d, want 2", event.AdmittedCount)
	}
}

func TestCapacityLedger_TryAdmit_Concurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedEvent(t, store, domain.Event{
		ID: "ev-1", Name: "x", OrganizerID: "org-1", CapacityMax: 5, Free: true,
	})

	const attempts = 20

	start := make(chan struct{})
	results := make(chan bool, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			admitted, err := store.Ledger.TryAdmit(ctx, "ev-1")
			if err != nil {
				t.Errorf("TryAdmit failed: %v", err)
				return
			}
			results <- admitted
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	admitted := 0
	for ok := range results {
		if ok {
			admitted++
		}
	}
	if admitted != 5 {
		t.Errorf("admitted = %d, want exactly 5 of %d concurrent attempts", admitted, attempts)
	}

	event, err := store.Events.GetByID(ctx, "ev-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if event.AdmittedCount != 5 {
		t.Errorf("AdmittedCount = %d, want 5", event.AdmittedCount)
	}
}

func TestCapacityLedger_TryAdmit_UnknownEvent(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Ledger.TryAdmit(context.Background(), "missing")
	if !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("error = %v, want ErrEventNotFound", err)
	}
}

func TestCapacityLedger_Release(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedEvent(t, store, domain.Event{
		ID: "ev-1", Name: "x", OrganizerID: "org-1", CapacityMax: 2, Free: true,
	})

	if _, err := store.Ledger.TryAdmit(ctx, "ev-1"); err != nil {
		t.Fatalf("TryAdmit failed: %v", err)
	}
	if err := store.Ledger.Release(ctx, "ev-1"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	// Releasing at zero is a no-op, not an underflow.
	if err := store.Ledger.Release(ctx, "ev-1"); err != nil {
		t.Fatalf("Release at zero failed: %v", err)
	}

	event, err := store.Events.GetByID(ctx, "ev-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if event.AdmittedCount != 0 {
		t.Errorf("AdmittedCount = %d, want 0", event.AdmittedCount)
	}
}

func TestCapacityLedger_RedeemCoupon_Concurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedEvent(t, store, domain.Event{
		ID: "ev-1", Name: "x", OrganizerID: "org-1", CapacityMax: 5,
		Price: 100, Currency: "EUR",
		Coupons: []domain.Coupon{
			{Code: "LAST1", DiscountType: domain.DiscountFixed, DiscountValue: 25, MaxUses: 1, Active: true},
		},
	})

	// Two racers on a single remaining use: exactly one wins.
	start := make(chan struct{})
	results := make(chan bool, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			redeemed, err := store.Ledger.RedeemCoupon(ctx, "ev-1", "LAST1")
			if err != nil {
				t.Errorf("RedeemCoupon failed: %v", err)
				return
			}
			results <- redeemed
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	redeemed := 0
	for ok := range results {
		if ok {
			redeemed++
		}
	}
	if redeemed != 1 {
		t.Errorf("redeemed = %d, want exactly 1", redeemed)
	}

	event, err := store.Events.GetByID(ctx, "ev-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	c, ok := event.CouponByCode("LAST1")
	if !ok {
		t.Fatal("coupon LAST1 missing")
	}
	if c.UsedCount != 1 {
		t.Errorf("UsedCount = %d, want 1", c.UsedCount)
	}
}

func TestCapacityLedger_RedeemCoupon(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedEvent(t, store, domain.Event{
		ID: "ev-1", Name: "x", OrganizerID: "org-1", CapacityMax: 5,
		Price: 100, Currency: "EUR",
		Coupons: []domain.Coupon{
			{Code: "SAVE10", DiscountType: domain.DiscountPercentage, DiscountValue: 10, MaxUses: 2, Active: true},
			{Code: "OLD", DiscountType: domain.DiscountFixed, DiscountValue: 5, MaxUses: 10, Active: false},
		},
	})

	for i := 0; i < 2; i++ {
		redeemed, err := store.Ledger.RedeemCoupon(ctx, "ev-1", "SAVE10")
		if err != nil {
			t.Fatalf("RedeemCoupon %d failed: %v", i, err)
		}
		if !redeemed {
			t.Fatalf("RedeemCoupon %d = false, want true", i)
		}
	}

	// Exhausted after max uses.
	redeemed, err := store.Ledger.RedeemCoupon(ctx, "ev-1", "SAVE10")
	if err != nil {
		t.Fatalf("RedeemCoupon failed: %v", err)
	}
	if redeemed {
		t.Error("RedeemCoupon = true past max uses, want false")
	}

	// Inactive coupons never redeem.
	redeemed, err = store.Ledger.RedeemCoupon(ctx, "ev-1", "OLD")
	if err != nil {
		t.Fatalf("RedeemCoupon failed: %v", err)
	}
	if redeemed {
		t.Error("RedeemCoupon = true for inactive coupon, want false")
	}

	// Unknown codes never redeem.
	redeemed, err = store.Ledger.RedeemCoupon(ctx, "ev-1", "NOPE")
	if err != nil {
		t.Fatalf("RedeemCoupon failed: %v", err)
	}
	if redeemed {
		t.Error("RedeemCoupon = true for unknown coupon, want false")
	}

	event, err := store.Events.GetByID(ctx, "ev-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	c, ok := event.CouponByCode("SAVE10")
	if !ok {
		t.Fatal("coupon SAVE10 missing")
	}
	if c.UsedCount != 2 {
		t.Errorf("UsedCount = %d, want 2", c.UsedCount)
	}
}
