package shared

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CloseOutcome describes how a listing was finalized
type CloseOutcome string

const (
	OutcomeWon           CloseOutcome = "won"
	OutcomeNoBids        CloseOutcome = "no_bids"
	OutcomeReserveNotMet CloseOutcome = "reserve_not_met"
	OutcomeAdminAwarded  CloseOutcome = "admin_awarded"
)

// AuctionCloseResult represents the result of closing a listing
type AuctionCloseResult struct {
	ListingID     uuid.UUID        `json:"listing_id"`
	Outcome       CloseOutcome     `json:"outcome"`
	WinningBidID  *uuid.UUID       `json:"winning_bid_id,omitempty"`
	WinnerID      *uuid.UUID       `json:"winner_id,omitempty"`
	FinalPrice    *decimal.Decimal `json:"final_price,omitempty"`
	ClosedAt      time.Time        `json:"closed_at"`
	AlreadyClosed bool             `json:"already_closed"`
}

// BidStats summarizes bidding activity on a listing
type BidStats struct {
	ListingID     uuid.UUID        `json:"listing_id"`
	BidCount      int              `json:"bid_count"`
	UniqueBidders int              `json:"unique_bidders"`
	HighestPrice  *decimal.Decimal `json:"highest_price,omitempty"`
}
