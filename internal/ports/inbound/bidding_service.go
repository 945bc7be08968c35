package inbound

import (
	"context"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/ledger"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdminAction is a manual decision an administrator takes on a bid
type AdminAction string

const (
	AdminApprove AdminAction = "approve"
	AdminReject  AdminAction = "reject"
	AdminMarkWon AdminAction = "mark-won"
)

// BidService defines the interface for bid operations
type BidService interface {
	// Submit places a new bid or revises the bidder's live bid on the listing
	Submit(ctx context.Context, req SubmitBidRequest) (*bid.Bid, error)

	// Cancel withdraws a live bid owned by bidderID
	Cancel(ctx context.Context, bidID, bidderID uuid.UUID) (*bid.Bid, error)

	// AdminOverride applies an administrator decision to a live bid
	AdminOverride(ctx context.Context, bidID uuid.UUID, action AdminAction) (*bid.Bid, error)

	// MarkPaid records payment of a won bid
	MarkPaid(ctx context.Context, bidID uuid.UUID) (*bid.Bid, error)

	// GetBid retrieves a bid by ID
	GetBid(ctx context.Context, bidID uuid.UUID) (*bid.Bid, error)

	// ListBids retrieves bids ordered by price desc, then creation time
	ListBids(ctx context.Context, req ListBidsRequest) ([]*bid.Bid, error)

	// WinningBid returns the currently winning bid of a listing, nil if none
	WinningBid(ctx context.Context, listingID uuid.UUID) (*bid.Bid, error)

	// History replays the ledger of a bid
	History(ctx context.Context, bidID uuid.UUID) ([]ledger.Entry, error)

	// Stats summarizes bidding on a listing
	Stats(ctx context.Context, listingID uuid.UUID) (*shared.BidStats, error)
}

// AuctionCloser defines the interface for finalizing listings
type AuctionCloser interface {
	// Close resolves the winner of an ended listing; closing twice is a no-op
	Close(ctx context.Context, listingID uuid.UUID) (*shared.AuctionCloseResult, error)

	// SweepExpired closes listings that ended more than the grace period ago
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// request to submit a bid
type SubmitBidRequest struct {
	ListingID       uuid.UUID        `json:"listing_id"`
	BidderID        uuid.UUID        `json:"bidder_id"`
	Price           decimal.Decimal  `json:"price"`
	Volume          decimal.Decimal  `json:"volume"`
	VolumeKind      bid.VolumeKind   `json:"volume_kind"`
	MaxAutoBidPrice *decimal.Decimal `json:"max_auto_bid_price,omitempty"`
	Note            string           `json:"note,omitempty"`
}

// request to list bids
type ListBidsRequest struct {
	ListingID *uuid.UUID   `json:"listing_id,omitempty"`
	BidderID  *uuid.UUID   `json:"bidder_id,omitempty"`
	Statuses  []bid.Status `json:"statuses,omitempty"`
	Limit     int          `json:"limit"`
}
