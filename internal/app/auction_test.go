package app

import (
	"errors"
	"testing"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/ledger"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/listing"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/google/uuid"
)

func TestCloseWithWinner(t *testing.T) {
	f := newFixture(t, func(l *listing.Listing) { l.ReservePrice = decPtr("55") })
	a := f.mustSubmit(f.bidder(), "55", nil)
	b := f.mustSubmit(f.bidder(), "60", nil)

	f.clock.Advance(25 * time.Hour)
	result, err := f.closer.Close(f.ctx, f.listing.ID)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if result.Outcome != shared.OutcomeWon || result.WinningBidID == nil || *result.WinningBidID != b.ID {
		t.Fatalf("result = %+v, want bob winning", result)
	}
	if !result.FinalPrice.Equal(dec("60")) {
		t.Errorf("final price = %s, want 60", result.FinalPrice)
	}

	if got := f.get(b.ID); got.Status != bid.StatusWon {
		t.Errorf("winner = %s, want won", got.Status)
	}
	if got := f.get(a.ID); got.Status != bid.StatusLost {
		t.Errorf("runner-up = %s, want lost", got.Status)
	}

	history := f.history(a.ID)
	if last := history[len(history)-1]; last.Reason != ledger.ReasonAuctionClosed {
		t.Errorf("last reason = %s, want %s", last.Reason, ledger.ReasonAuctionClosed)
	}

	if f.events.count(outbound.EventTypeAuctionWon) != 1 ||
		f.events.count(outbound.EventTypeAuctionLost) != 1 ||
		f.events.count(outbound.EventTypeAuctionClosed) != 1 {
		t.Errorf("settlement events = %+v", f.events.events)
	}
}

func TestCloseReserveNotMet(t *testing.T) {
	f := newFixture(t, func(l *listing.Listing) { l.ReservePrice = decPtr("100") })
	low := f.mustSubmit(f.bidder(), "80", nil)
	high := f.mustSubmit(f.bidder(), "90", nil)

	f.clock.Advance(25 * time.Hour)
	result, err := f.closer.Close(f.ctx, f.listing.ID)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if result.Outcome != shared.OutcomeReserveNotMet || result.WinningBidID != nil {
		t.Fatalf("result = %+v, want reserve not met", result)
	}
	for _, id := range []uuid.UUID{low.ID, high.ID} {
		if got := f.get(id); got.Status != bid.StatusLost {
			t.Errorf("bid %s = %s, want lost", id, got.Status)
		}
	}
	if n := f.events.count(outbound.EventTypeAuctionWon); n != 0 {
		t.Errorf("won events = %d, want 0", n)
	}
}

func TestCloseWithoutBids(t *testing.T) {
	f := newFixture(t, nil)
	f.clock.Advance(25 * time.Hour)

	result, err := f.closer.Close(f.ctx, f.listing.ID)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if result.Outcome != shared.OutcomeNoBids {
		t.Errorf("outcome = %s, want %s", result.Outcome, shared.OutcomeNoBids)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	f.mustSubmit(f.bidder(), "60", nil)
	f.clock.Advance(25 * time.Hour)

	first, err := f.closer.Close(f.ctx, f.listing.ID)
	if err != nil {
		t.Fatalf("first Close: %v", err)
	}
	entries := f.ledgerSize()

	second, err := f.closer.Close(f.ctx, f.listing.ID)
	if err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if first.AlreadyClosed || !second.AlreadyClosed {
		t.Errorf("AlreadyClosed = %v then %v, want false then true", first.AlreadyClosed, second.AlreadyClosed)
	}
	if second.Outcome != first.Outcome || *second.WinningBidID != *first.WinningBidID {
		t.Errorf("second result %+v differs from first %+v", second, first)
	}
	if n := f.ledgerSize(); n != entries {
		t.Errorf("ledger grew from %d to %d on a repeated close", entries, n)
	}
	if n := f.events.count(outbound.EventTypeAuctionClosed); n != 1 {
		t.Errorf("closed events = %d, want 1", n)
	}
}

func TestCloseBeforeEnd(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.closer.Close(f.ctx, f.listing.ID)
	if !errors.Is(err, shared.ErrValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestCloseUnknownListing(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.closer.Close(f.ctx, uuid.New()); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestSweepExpiredHonorsGracePeriod(t *testing.T) {
	f := newFixture(t, nil)
	f.mustSubmit(f.bidder(), "60", nil)

	end := f.listing.EndTime
	f.clock.Advance(end.Sub(f.clock.Now()) + time.Minute)

	closed, err := f.closer.SweepExpired(f.ctx, f.clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	if closed != 0 {
		t.Fatalf("closed %d listings inside the grace period", closed)
	}

	f.clock.Advance(10 * time.Minute)
	closed, err = f.closer.SweepExpired(f.ctx, f.clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	if closed != 1 {
		t.Fatalf("closed = %d, want 1", closed)
	}

	closed, err = f.closer.SweepExpired(f.ctx, f.clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	if closed != 0 {
		t.Errorf("repeated sweep closed %d listings", closed)
	}
}

func TestSweepClosesManyListings(t *testing.T) {
	f := newFixture(t, nil)
	for i := 0; i < 10; i++ {
		f.listings.Put(&listing.Listing{
			ID:                uuid.New(),
			SellerID:          uuid.New(),
			Status:            listing.StatusActive,
			Complete:          true,
			StartingPrice:     dec("1"),
			AvailableQuantity: dec("1"),
			EndTime:           start.Add(time.Duration(i) * time.Minute),
		})
	}

	f.clock.Advance(48 * time.Hour)
	closed, err := f.closer.SweepExpired(f.ctx, f.clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	if closed != 11 {
		t.Errorf("closed = %d, want 11", closed)
	}
}

func TestSweepReachesListingsPastTheBatchLimit(t *testing.T) {
	f := newFixture(t, nil)
	for i := 0; i < defaultSweepLimit+50; i++ {
		f.listings.Put(&listing.Listing{
			ID:                uuid.New(),
			SellerID:          uuid.New(),
			Status:            listing.StatusActive,
			Complete:          true,
			StartingPrice:     dec("1"),
			AvailableQuantity: dec("1"),
			EndTime:           start.Add(time.Duration(i) * time.Second),
		})
	}

	f.clock.Advance(48 * time.Hour)
	var counts []int
	for i := 0; i < 3; i++ {
		closed, err := f.closer.SweepExpired(f.ctx, f.clock.Now())
		if err != nil {
			t.Fatal(err)
		}
		counts = append(counts, closed)
	}

	if want := []int{defaultSweepLimit, 51, 0}; counts[0] != want[0] || counts[1] != want[1] || counts[2] != want[2] {
		t.Fatalf("sweeps closed %v, want %v", counts, want)
	}
	if result, err := f.closer.Close(f.ctx, f.listing.ID); err != nil || !result.AlreadyClosed {
		t.Errorf("fixture listing not closed by the sweeps: %+v, %v", result, err)
	}
}
