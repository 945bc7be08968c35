// Package memory keeps bids, ledger and closures in process memory. It backs
// the service when STORAGE_DRIVER=memory and the application tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/ledger"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/ranking"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/google/uuid"
)

// Store implements outbound.Store. Writes made inside Do are staged and
// become visible to others only once fn returns without error.
type Store struct {
	mu       sync.RWMutex
	bids     map[uuid.UUID]*bid.Bid
	ledger   []ledger.Entry
	closures map[uuid.UUID]*shared.AuctionCloseResult
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		bids:     make(map[uuid.UUID]*bid.Bid),
		closures: make(map[uuid.UUID]*shared.AuctionCloseResult),
	}
}

// Do runs fn against a staged view and commits it if fn succeeds
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos outbound.Repositories) error) error {
	tx := newView(s, true)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range tx.bids {
		s.bids[id] = b.Clone()
	}
	s.ledger = append(s.ledger, tx.entries...)
	for id, c := range tx.closures {
		closure := *c
		s.closures[id] = &closure
	}
	return nil
}

// IsClosed returns true if a closure has been committed for the listing
func (s *Store) IsClosed(listingID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.closures[listingID]
	return ok
}

func (s *Store) Bids() outbound.BidRepository {
	return bidRepository{v: newView(s, false)}
}

func (s *Store) Ledger() outbound.LedgerRepository {
	return ledgerRepository{v: newView(s, false)}
}

func (s *Store) Closures() outbound.ClosureRepository {
	return closureRepository{v: newView(s, false)}
}

// view reads committed state overlaid with its own staged writes. A view
// that is not staged writes straight through.
type view struct {
	store    *Store
	staged   bool
	bids     map[uuid.UUID]*bid.Bid
	entries  []ledger.Entry
	closures map[uuid.UUID]*shared.AuctionCloseResult
	mu       sync.Mutex
}

func newView(s *Store, staged bool) *view {
	return &view{
		store:    s,
		staged:   staged,
		bids:     make(map[uuid.UUID]*bid.Bid),
		closures: make(map[uuid.UUID]*shared.AuctionCloseResult),
	}
}

func (v *view) Bids() outbound.BidRepository         { return bidRepository{v: v} }
func (v *view) Ledger() outbound.LedgerRepository    { return ledgerRepository{v: v} }
func (v *view) Closures() outbound.ClosureRepository { return closureRepository{v: v} }

// snapshot returns every bid visible to the view
func (v *view) snapshot() map[uuid.UUID]*bid.Bid {
	v.store.mu.RLock()
	all := make(map[uuid.UUID]*bid.Bid, len(v.store.bids)+len(v.bids))
	for id, b := range v.store.bids {
		all[id] = b
	}
	v.store.mu.RUnlock()

	v.mu.Lock()
	for id, b := range v.bids {
		all[id] = b
	}
	v.mu.Unlock()
	return all
}

func (v *view) putBid(b *bid.Bid) {
	if !v.staged {
		v.store.mu.Lock()
		v.store.bids[b.ID] = b.Clone()
		v.store.mu.Unlock()
		return
	}
	v.mu.Lock()
	v.bids[b.ID] = b.Clone()
	v.mu.Unlock()
}

type bidRepository struct {
	v *view
}

func (r bidRepository) Create(ctx context.Context, b *bid.Bid) error {
	r.v.putBid(b)
	return nil
}

func (r bidRepository) Update(ctx context.Context, b *bid.Bid) error {
	if _, ok := r.v.snapshot()[b.ID]; !ok {
		return shared.ErrBidNotFound
	}
	r.v.putBid(b)
	return nil
}

func (r bidRepository) GetByID(ctx context.Context, id uuid.UUID) (*bid.Bid, error) {
	b, ok := r.v.snapshot()[id]
	if !ok {
		return nil, shared.ErrBidNotFound
	}
	return b.Clone(), nil
}

func (r bidRepository) ListLive(ctx context.Context, listingID uuid.UUID) ([]*bid.Bid, error) {
	var live []*bid.Bid
	for _, b := range r.v.snapshot() {
		if b.ListingID == listingID && b.IsLive() {
			live = append(live, b.Clone())
		}
	}
	sort.Slice(live, func(i, j int) bool { return ranking.Less(live[i], live[j]) })
	return live, nil
}

func (r bidRepository) List(ctx context.Context, filter outbound.BidFilter) ([]*bid.Bid, error) {
	var bids []*bid.Bid
	for _, b := range r.v.snapshot() {
		if matches(b, filter) {
			bids = append(bids, b.Clone())
		}
	}
	sort.Slice(bids, func(i, j int) bool {
		if c := bids[i].Price.Cmp(bids[j].Price); c != 0 {
			return c > 0
		}
		return bids[i].CreatedAt.Before(bids[j].CreatedAt)
	})
	if filter.Limit > 0 && len(bids) > filter.Limit {
		bids = bids[:filter.Limit]
	}
	return bids, nil
}

func (r bidRepository) Stats(ctx context.Context, listingID uuid.UUID) (*shared.BidStats, error) {
	stats := &shared.BidStats{ListingID: listingID}
	bidders := make(map[uuid.UUID]struct{})
	for _, b := range r.v.snapshot() {
		if b.ListingID != listingID {
			continue
		}
		stats.BidCount++
		bidders[b.BidderID] = struct{}{}
		if b.Status == bid.StatusCancelled {
			continue
		}
		if stats.HighestPrice == nil || b.Price.GreaterThan(*stats.HighestPrice) {
			price := b.Price
			stats.HighestPrice = &price
		}
	}
	stats.UniqueBidders = len(bidders)
	return stats, nil
}

func matches(b *bid.Bid, filter outbound.BidFilter) bool {
	if filter.ListingID != nil && b.ListingID != *filter.ListingID {
		return false
	}
	if filter.BidderID != nil && b.BidderID != *filter.BidderID {
		return false
	}
	if len(filter.Statuses) == 0 {
		return true
	}
	for _, status := range filter.Statuses {
		if b.Status == status {
			return true
		}
	}
	return false
}

type ledgerRepository struct {
	v *view
}

func (r ledgerRepository) Append(ctx context.Context, entries ...ledger.Entry) error {
	if !r.v.staged {
		r.v.store.mu.Lock()
		r.v.store.ledger = append(r.v.store.ledger, entries...)
		r.v.store.mu.Unlock()
		return nil
	}
	r.v.mu.Lock()
	r.v.entries = append(r.v.entries, entries...)
	r.v.mu.Unlock()
	return nil
}

func (r ledgerRepository) ListByBid(ctx context.Context, bidID uuid.UUID) ([]ledger.Entry, error) {
	return r.list(func(e ledger.Entry) bool { return e.BidID == bidID }), nil
}

func (r ledgerRepository) ListByListing(ctx context.Context, listingID uuid.UUID) ([]ledger.Entry, error) {
	return r.list(func(e ledger.Entry) bool { return e.ListingID == listingID }), nil
}

func (r ledgerRepository) list(keep func(ledger.Entry) bool) []ledger.Entry {
	var entries []ledger.Entry
	r.v.store.mu.RLock()
	for _, e := range r.v.store.ledger {
		if keep(e) {
			entries = append(entries, e)
		}
	}
	r.v.store.mu.RUnlock()

	r.v.mu.Lock()
	for _, e := range r.v.entries {
		if keep(e) {
			entries = append(entries, e)
		}
	}
	r.v.mu.Unlock()
	return entries
}

type closureRepository struct {
	v *view
}

func (r closureRepository) Get(ctx context.Context, listingID uuid.UUID) (*shared.AuctionCloseResult, error) {
	r.v.mu.Lock()
	staged, ok := r.v.closures[listingID]
	r.v.mu.Unlock()
	if ok {
		closure := *staged
		return &closure, nil
	}

	r.v.store.mu.RLock()
	defer r.v.store.mu.RUnlock()
	if c, ok := r.v.store.closures[listingID]; ok {
		closure := *c
		return &closure, nil
	}
	return nil, nil
}

func (r closureRepository) Create(ctx context.Context, closure *shared.AuctionCloseResult) error {
	stored := *closure
	if !r.v.staged {
		r.v.store.mu.Lock()
		r.v.store.closures[closure.ListingID] = &stored
		r.v.store.mu.Unlock()
		return nil
	}
	r.v.mu.Lock()
	r.v.closures[closure.ListingID] = &stored
	r.v.mu.Unlock()
	return nil
}
