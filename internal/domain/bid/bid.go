package bid

import (
	"fmt"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the status of a bid
type Status string

const (
	StatusActive    Status = "active"
	StatusWinning   Status = "winning"
	StatusOutbid    Status = "outbid"
	StatusWon       Status = "won"
	StatusLost      Status = "lost"
	StatusCancelled Status = "cancelled"
	StatusPaid      Status = "paid"
)

// IsTerminal returns true for statuses a bid never leaves (except won -> paid)
func (s Status) IsTerminal() bool {
	switch s {
	case StatusWon, StatusLost, StatusCancelled, StatusPaid:
		return true
	}
	return false
}

// CanBecome reports whether the state machine allows s -> next.
func (s Status) CanBecome(next Status) bool {
	if s == StatusWon {
		return next == StatusPaid
	}
	if s.IsTerminal() {
		return false
	}
	return next != StatusPaid
}

// VolumeKind tells whether the bid covers part or all of the listed quantity
type VolumeKind string

const (
	VolumePartial VolumeKind = "partial"
	VolumeFull    VolumeKind = "full"
)

// Valid returns true for known volume kinds
func (k VolumeKind) Valid() bool {
	return k == VolumePartial || k == VolumeFull
}

// Bid represents a buyer's offer on a listing
type Bid struct {
	ID              uuid.UUID        `json:"id"`
	ListingID       uuid.UUID        `json:"listing_id"`
	BidderID        uuid.UUID        `json:"bidder_id"`
	Price           decimal.Decimal  `json:"price"`
	Volume          decimal.Decimal  `json:"volume"`
	VolumeKind      VolumeKind       `json:"volume_kind"`
	TotalValue      decimal.Decimal  `json:"total_value"`
	Status          Status           `json:"status"`
	MaxAutoBidPrice *decimal.Decimal `json:"max_auto_bid_price,omitempty"`
	IsAutoBid       bool             `json:"is_auto_bid"`
	Note            string           `json:"note,omitempty"`
	SubmittedAt     time.Time        `json:"submitted_at"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Terms are the buyer-controlled fields of a bid
type Terms struct {
	Price           decimal.Decimal
	Volume          decimal.Decimal
	VolumeKind      VolumeKind
	MaxAutoBidPrice *decimal.Decimal
	Note            string
	IsAutoBid       bool
}

// New creates an active bid
func New(listingID, bidderID uuid.UUID, terms Terms, now time.Time) *Bid {
	b := &Bid{
		ID:        uuid.New(),
		ListingID: listingID,
		BidderID:  bidderID,
		CreatedAt: now,
	}
	b.Revise(terms, now)
	return b
}

// Revise applies new terms in place and resets the bid to active so it is
// ranked again. The auto-bid ceiling is replaced, not merged. An automatic
// revision keeps the buyer's ceiling and note.
func (b *Bid) Revise(terms Terms, now time.Time) {
	b.Price = terms.Price
	b.Volume = terms.Volume
	b.VolumeKind = terms.VolumeKind
	b.TotalValue = terms.Price.Mul(terms.Volume)
	b.IsAutoBid = terms.IsAutoBid
	if !terms.IsAutoBid {
		b.MaxAutoBidPrice = terms.MaxAutoBidPrice
		b.Note = terms.Note
	}
	b.Status = StatusActive
	b.SubmittedAt = now
	b.UpdatedAt = now
}

// SetStatus moves the bid to next, honoring the state machine. Setting the
// current status again is a no-op.
func (b *Bid) SetStatus(next Status, now time.Time) error {
	if b.Status == next {
		return nil
	}
	if !b.Status.CanBecome(next) {
		return fmt.Errorf("%w: %s -> %s", shared.ErrInvalidStatusChange, b.Status, next)
	}
	b.Status = next
	b.UpdatedAt = now
	return nil
}

// IsLive returns true if the bid still takes part in ranking
func (b *Bid) IsLive() bool {
	return !b.Status.IsTerminal()
}

// HasCeiling returns true if the bidder opted into automatic re-bidding
func (b *Bid) HasCeiling() bool {
	return b.MaxAutoBidPrice != nil
}

// Clone returns a deep copy
func (b *Bid) Clone() *Bid {
	c := *b
	if b.MaxAutoBidPrice != nil {
		ceiling := *b.MaxAutoBidPrice
		c.MaxAutoBidPrice = &ceiling
	}
	return &c
}
