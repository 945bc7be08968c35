package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/ledger"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/listing"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newTestBid(listingID uuid.UUID, price int64) *bid.Bid {
	return bid.New(listingID, uuid.New(), bid.Terms{
		Price:      decimal.NewFromInt(price),
		Volume:     decimal.NewFromInt(2),
		VolumeKind: bid.VolumePartial,
	}, time.Now())
}

func TestDoCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	listingID := uuid.New()
	b := newTestBid(listingID, 10)

	err := store.Do(ctx, func(ctx context.Context, repos outbound.Repositories) error {
		if err := repos.Bids().Create(ctx, b); err != nil {
			return err
		}
		// visible inside the unit of work
		if _, err := repos.Bids().GetByID(ctx, b.ID); err != nil {
			t.Errorf("staged bid not visible: %v", err)
		}
		// not visible outside yet
		if _, err := store.Bids().GetByID(ctx, b.ID); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("staged bid leaked before commit")
		}
		return repos.Ledger().Append(ctx, ledger.NewEntry(nil, b, ledger.ReasonPlaced, "", time.Now()))
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	got, err := store.Bids().GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Price.Equal(b.Price) {
		t.Errorf("price = %s, want %s", got.Price, b.Price)
	}
	entries, _ := store.Ledger().ListByBid(ctx, b.ID)
	if len(entries) != 1 {
		t.Errorf("ledger entries = %d, want 1", len(entries))
	}
}

func TestDoDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	listingID := uuid.New()
	failure := errors.New("boom")

	err := store.Do(ctx, func(ctx context.Context, repos outbound.Repositories) error {
		b := newTestBid(listingID, 10)
		_ = repos.Bids().Create(ctx, b)
		_ = repos.Closures().Create(ctx, &shared.AuctionCloseResult{ListingID: listingID, Outcome: shared.OutcomeNoBids})
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("err = %v, want %v", err, failure)
	}

	live, _ := store.Bids().ListLive(ctx, listingID)
	if len(live) != 0 {
		t.Errorf("bids survived a failed unit of work")
	}
	closure, _ := store.Closures().Get(ctx, listingID)
	if closure != nil {
		t.Errorf("closure survived a failed unit of work")
	}
}

func TestReturnedBidsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	b := newTestBid(uuid.New(), 10)
	if err := store.Bids().Create(ctx, b); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Bids().GetByID(ctx, b.ID)
	got.Price = decimal.NewFromInt(999)

	again, _ := store.Bids().GetByID(ctx, b.ID)
	if !again.Price.Equal(decimal.NewFromInt(10)) {
		t.Errorf("stored bid modified through a returned copy")
	}
}

func TestListOrdersByPriceThenCreation(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	listingID := uuid.New()

	low := newTestBid(listingID, 5)
	first := newTestBid(listingID, 9)
	second := newTestBid(listingID, 9)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	other := newTestBid(uuid.New(), 50)
	for _, b := range []*bid.Bid{low, second, other, first} {
		_ = store.Bids().Create(ctx, b)
	}

	bids, err := store.Bids().List(ctx, outbound.BidFilter{ListingID: &listingID})
	if err != nil {
		t.Fatal(err)
	}
	want := []uuid.UUID{first.ID, second.ID, low.ID}
	if len(bids) != len(want) {
		t.Fatalf("got %d bids, want %d", len(bids), len(want))
	}
	for i, id := range want {
		if bids[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, bids[i].ID, id)
		}
	}

	stats, _ := store.Bids().Stats(ctx, listingID)
	if stats.BidCount != 3 || stats.UniqueBidders != 3 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.HighestPrice == nil || !stats.HighestPrice.Equal(decimal.NewFromInt(9)) {
		t.Errorf("highest price = %v", stats.HighestPrice)
	}
}

func TestListExpiredSkipsClosedListings(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	end := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	closed := &listing.Listing{ID: uuid.New(), Status: listing.StatusActive, EndTime: end}
	open := &listing.Listing{ID: uuid.New(), Status: listing.StatusActive, EndTime: end.Add(time.Minute)}
	catalog := NewListings(closed, open)

	err := store.Do(ctx, func(ctx context.Context, repos outbound.Repositories) error {
		return repos.Closures().Create(ctx, &shared.AuctionCloseResult{
			ListingID: closed.ID,
			Outcome:   shared.OutcomeNoBids,
			ClosedAt:  end,
		})
	})
	if err != nil {
		t.Fatal(err)
	}

	ids, err := catalog.ListExpired(ctx, end.Add(time.Hour), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != closed.ID {
		t.Fatalf("untracked catalog = %v, want the earliest listing", ids)
	}

	catalog.TrackClosures(store)
	ids, err = catalog.ListExpired(ctx, end.Add(time.Hour), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != open.ID {
		t.Fatalf("ListExpired = %v, want only %s", ids, open.ID)
	}
}
