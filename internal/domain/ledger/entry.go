package ledger

import (
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reason records why a bid changed
type Reason string

const (
	ReasonPlaced        Reason = "placed"
	ReasonUpdated       Reason = "updated"
	ReasonAutoBid       Reason = "auto_bid"
	ReasonAdminOverride Reason = "admin_override"
	ReasonAuctionClosed Reason = "auction_closed"
	ReasonCancelled     Reason = "cancelled"
	ReasonReranked      Reason = "reranked"
	ReasonPaid          Reason = "paid"
)

// Entry is one immutable line of a bid's audit history
type Entry struct {
	ID             uuid.UUID        `json:"id"`
	BidID          uuid.UUID        `json:"bid_id"`
	ListingID      uuid.UUID        `json:"listing_id"`
	BidderID       uuid.UUID        `json:"bidder_id"`
	PreviousPrice  *decimal.Decimal `json:"previous_price,omitempty"`
	NewPrice       decimal.Decimal  `json:"new_price"`
	PreviousVolume *decimal.Decimal `json:"previous_volume,omitempty"`
	NewVolume      decimal.Decimal  `json:"new_volume"`
	PreviousStatus bid.Status       `json:"previous_status,omitempty"`
	NewStatus      bid.Status       `json:"new_status"`
	Reason         Reason           `json:"reason"`
	Note           string           `json:"note,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// NewEntry describes the move of a bid from before to after. before is nil
// for a bid created by the operation.
func NewEntry(before, after *bid.Bid, reason Reason, note string, now time.Time) Entry {
	entry := Entry{
		ID:        uuid.New(),
		BidID:     after.ID,
		ListingID: after.ListingID,
		BidderID:  after.BidderID,
		NewPrice:  after.Price,
		NewVolume: after.Volume,
		NewStatus: after.Status,
		Reason:    reason,
		Note:      note,
		CreatedAt: now,
	}
	if before != nil {
		price, volume := before.Price, before.Volume
		entry.PreviousPrice = &price
		entry.PreviousVolume = &volume
		entry.PreviousStatus = before.Status
	}
	return entry
}

// Changed returns true if the bid moved between before and after in a way
// the ledger has to record.
func Changed(before, after *bid.Bid) bool {
	if before == nil {
		return true
	}
	return !before.Price.Equal(after.Price) ||
		!before.Volume.Equal(after.Volume) ||
		before.Status != after.Status ||
		before.VolumeKind != after.VolumeKind ||
		!sameCeiling(before.MaxAutoBidPrice, after.MaxAutoBidPrice)
}

func sameCeiling(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
