package app

import (
	"testing"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/ledger"
)

func TestCascadeBetweenTwoCeilings(t *testing.T) {
	f := newFixture(t, nil)
	alice, bob := f.bidder(), f.bidder()

	a := f.mustSubmit(alice, "55", decPtr("65"))
	b := f.mustSubmit(bob, "60", decPtr("70"))

	a, b = f.get(a.ID), f.get(b.ID)
	if b.Status != bid.StatusWinning || !b.Price.Equal(dec("66")) {
		t.Errorf("bob = %s at %s, want winning at 66", b.Status, b.Price)
	}
	if a.Status != bid.StatusOutbid || !a.Price.Equal(dec("65")) {
		t.Errorf("alice = %s at %s, want outbid at 65", a.Status, a.Price)
	}
	if n := len(f.winners()); n != 1 {
		t.Errorf("winning bids = %d, want 1", n)
	}

	autoBids := 0
	for _, e := range f.history(a.ID) {
		if e.Reason == ledger.ReasonAutoBid {
			autoBids++
		}
	}
	if autoBids != 1 {
		t.Errorf("alice auto-bids = %d, want 1", autoBids)
	}
}

func TestCascadeStopsAtCeiling(t *testing.T) {
	f := newFixture(t, nil)
	alice, bob := f.bidder(), f.bidder()

	a := f.mustSubmit(alice, "55", decPtr("60"))
	f.mustSubmit(bob, "60", nil)

	// 61 would be above the ceiling
	a = f.get(a.ID)
	if a.Status != bid.StatusOutbid || !a.Price.Equal(dec("55")) {
		t.Errorf("alice = %s at %s, want outbid at 55", a.Status, a.Price)
	}
}

func TestCascadeStepLimit(t *testing.T) {
	f := newFixture(t, nil, withMaxSteps(1))
	alice, bob := f.bidder(), f.bidder()

	a := f.mustSubmit(alice, "55", decPtr("65"))
	b := f.mustSubmit(bob, "60", decPtr("70"))

	a, b = f.get(a.ID), f.get(b.ID)
	if a.Status != bid.StatusWinning || !a.Price.Equal(dec("65")) {
		t.Errorf("alice = %s at %s, want winning at 65", a.Status, a.Price)
	}
	if b.Status != bid.StatusOutbid || !b.Price.Equal(dec("60")) {
		t.Errorf("bob = %s at %s, want outbid at 60 after the step limit", b.Status, b.Price)
	}
}

func TestCascadeWithFractionalIncrement(t *testing.T) {
	f := newFixture(t, nil)
	f.service.increment = dec("0.5")
	alice, bob := f.bidder(), f.bidder()

	a := f.mustSubmit(alice, "55", decPtr("58"))
	f.mustSubmit(bob, "57", nil)

	a = f.get(a.ID)
	if !a.Price.Equal(dec("57.5")) || a.Status != bid.StatusWinning {
		t.Errorf("alice = %s at %s, want winning at 57.5", a.Status, a.Price)
	}
}
