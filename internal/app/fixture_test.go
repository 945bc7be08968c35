package app

import (
	"context"
	"sync"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/adapters/lock"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/adapters/memory"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/ledger"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/listing"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/inbound"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var start = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorder struct {
	mu     sync.Mutex
	events []outbound.Event
}

func (r *recorder) Publish(ctx context.Context, event outbound.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) count(eventType outbound.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// tester is the part of *testing.T and *rapid.T the fixture needs
type tester interface {
	Helper()
	Fatalf(format string, args ...any)
}

type fixture struct {
	t          tester
	ctx        context.Context
	clock      *clock
	store      outbound.Store
	listings   *memory.Listings
	identities *memory.Identities
	locker     *lock.LocalLocker
	events     *recorder
	service    *BidService
	closer     *AuctionCloser
	listing    *listing.Listing
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	store     outbound.Store
	increment decimal.Decimal
	maxSteps  int
}

func withStore(store outbound.Store) fixtureOption {
	return func(c *fixtureConfig) { c.store = store }
}

func withMaxSteps(n int) fixtureOption {
	return func(c *fixtureConfig) { c.maxSteps = n }
}

func newFixture(t tester, configure func(l *listing.Listing), opts ...fixtureOption) *fixture {
	t.Helper()

	cfg := fixtureConfig{store: memory.NewStore(), increment: dec("1")}
	for _, opt := range opts {
		opt(&cfg)
	}

	l := &listing.Listing{
		ID:                uuid.New(),
		SellerID:          uuid.New(),
		Status:            listing.StatusActive,
		Complete:          true,
		StartingPrice:     dec("50"),
		AvailableQuantity: dec("100"),
		Currency:          "SEK",
		Unit:              "tons",
		EndTime:           start.Add(24 * time.Hour),
		AllowThirdParty:   true,
	}
	if configure != nil {
		configure(l)
	}

	f := &fixture{
		t:          t,
		ctx:        context.Background(),
		clock:      &clock{now: start},
		store:      cfg.store,
		listings:   memory.NewListings(l),
		identities: memory.NewIdentities(),
		locker:     lock.NewLocalLocker(200 * time.Millisecond),
		events:     &recorder{},
		listing:    l,
	}
	if store, ok := cfg.store.(*memory.Store); ok {
		f.listings.TrackClosures(store)
	}

	service, err := NewBidService(BidServiceParams{
		Store:            f.store,
		Listings:         f.listings,
		Identities:       f.identities,
		Locker:           f.locker,
		Events:           f.events,
		AutoBidIncrement: cfg.increment,
		CascadeMaxSteps:  cfg.maxSteps,
		Now:              f.clock.Now,
		Logger:           zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewBidService: %v", err)
	}
	f.service = service

	f.closer = NewAuctionCloser(AuctionCloserParams{
		Store:       f.store,
		Listings:    f.listings,
		Locker:      f.locker,
		Events:      f.events,
		GracePeriod: 5 * time.Minute,
		Now:         f.clock.Now,
		Logger:      zerolog.Nop(),
	})
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// bidder registers an authenticated bidder allowed to bid
func (f *fixture) bidder() uuid.UUID {
	id := uuid.New()
	f.identities.Put(memory.Bidder{ID: id, Active: true, CanBid: true})
	return id
}

func (f *fixture) submit(bidderID uuid.UUID, price string, ceiling *decimal.Decimal) (*bid.Bid, error) {
	f.t.Helper()
	f.clock.Advance(time.Second)
	return f.service.Submit(f.ctx, inbound.SubmitBidRequest{
		ListingID:       f.listing.ID,
		BidderID:        bidderID,
		Price:           dec(price),
		Volume:          dec("10"),
		VolumeKind:      bid.VolumePartial,
		MaxAutoBidPrice: ceiling,
	})
}

func (f *fixture) mustSubmit(bidderID uuid.UUID, price string, ceiling *decimal.Decimal) *bid.Bid {
	f.t.Helper()
	b, err := f.submit(bidderID, price, ceiling)
	if err != nil {
		f.t.Fatalf("Submit(%s): %v", price, err)
	}
	return b
}

func (f *fixture) get(id uuid.UUID) *bid.Bid {
	f.t.Helper()
	b, err := f.store.Bids().GetByID(f.ctx, id)
	if err != nil {
		f.t.Fatalf("GetByID: %v", err)
	}
	return b
}

func (f *fixture) history(id uuid.UUID) []ledger.Entry {
	f.t.Helper()
	entries, err := f.store.Ledger().ListByBid(f.ctx, id)
	if err != nil {
		f.t.Fatalf("ListByBid: %v", err)
	}
	return entries
}

func (f *fixture) allBids() []*bid.Bid {
	f.t.Helper()
	bids, err := f.store.Bids().List(f.ctx, outbound.BidFilter{ListingID: &f.listing.ID})
	if err != nil {
		f.t.Fatalf("List: %v", err)
	}
	return bids
}

func (f *fixture) winners() []*bid.Bid {
	var winners []*bid.Bid
	for _, b := range f.allBids() {
		if b.Status == bid.StatusWinning {
			winners = append(winners, b)
		}
	}
	return winners
}

func (f *fixture) ledgerSize() int {
	entries, err := f.store.Ledger().ListByListing(f.ctx, f.listing.ID)
	if err != nil {
		f.t.Fatalf("ListByListing: %v", err)
	}
	return len(entries)
}

func reasons(entries []ledger.Entry) []ledger.Reason {
	out := make([]ledger.Reason, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Reason)
	}
	return out
}
