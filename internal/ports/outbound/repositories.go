package outbound

import (
	"context"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/ledger"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"

	"github.com/google/uuid"
)

// BidFilter narrows bid listings. Empty fields match everything.
type BidFilter struct {
	ListingID *uuid.UUID
	BidderID  *uuid.UUID
	Statuses  []bid.Status
	Limit     int
}

// BidRepository defines the interface for bid data operations
type BidRepository interface {
	// Create stores a new bid
	Create(ctx context.Context, bid *bid.Bid) error

	// Update overwrites a stored bid
	Update(ctx context.Context, bid *bid.Bid) error

	// GetByID retrieves a bid by ID, shared.ErrBidNotFound if missing
	GetByID(ctx context.Context, id uuid.UUID) (*bid.Bid, error)

	// ListLive retrieves the non-terminal bids of a listing
	ListLive(ctx context.Context, listingID uuid.UUID) ([]*bid.Bid, error)

	// List retrieves bids ordered by price desc, then creation time asc
	List(ctx context.Context, filter BidFilter) ([]*bid.Bid, error)

	// Stats counts bids and distinct bidders of a listing
	Stats(ctx context.Context, listingID uuid.UUID) (*shared.BidStats, error)
}

// LedgerRepository is the append-only audit log of bid changes
type LedgerRepository interface {
	// Append stores entries; existing entries are never touched
	Append(ctx context.Context, entries ...ledger.Entry) error

	// ListByBid returns the history of one bid, oldest first
	ListByBid(ctx context.Context, bidID uuid.UUID) ([]ledger.Entry, error)

	// ListByListing returns the history of every bid on a listing, oldest first
	ListByListing(ctx context.Context, listingID uuid.UUID) ([]ledger.Entry, error)
}

// ClosureRepository records finalized listings
type ClosureRepository interface {
	// Get returns the closure of a listing, or nil if it is still open
	Get(ctx context.Context, listingID uuid.UUID) (*shared.AuctionCloseResult, error)

	// Create records a closure
	Create(ctx context.Context, closure *shared.AuctionCloseResult) error
}

// Repositories groups the repositories that take part in one unit of work
type Repositories interface {
	Bids() BidRepository
	Ledger() LedgerRepository
	Closures() ClosureRepository
}

// Store runs units of work. Repositories handed to fn see each other's
// writes; either every write of fn is kept or none is.
type Store interface {
	Repositories
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
