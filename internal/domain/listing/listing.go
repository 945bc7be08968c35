package listing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the marketplace status of a listing
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusCompleted Status = "completed"
)

// Listing is the read-only snapshot of a material listing that bids are
// placed against. It is owned by the catalog, not by the bidding core.
type Listing struct {
	ID                uuid.UUID        `json:"id"`
	SellerID          uuid.UUID        `json:"seller_id"`
	Status            Status           `json:"status"`
	Complete          bool             `json:"complete"`
	StartingPrice     decimal.Decimal  `json:"starting_price"`
	ReservePrice      *decimal.Decimal `json:"reserve_price,omitempty"`
	AvailableQuantity decimal.Decimal  `json:"available_quantity"`
	MinOrderQuantity  *decimal.Decimal `json:"min_order_quantity,omitempty"`
	Currency          string           `json:"currency"`
	Unit              string           `json:"unit"`
	EndTime           time.Time        `json:"end_time"`
	AllowThirdParty   bool             `json:"allow_third_party"`
}

// AcceptingBids returns true if the listing is open for bidding
func (l *Listing) AcceptingBids() bool {
	return l.Status == StatusActive && l.Complete
}

// HasEnded returns true once the end time has been reached
func (l *Listing) HasEnded(now time.Time) bool {
	return !now.Before(l.EndTime)
}

// ReserveMet reports whether price satisfies the reserve. Listings without a
// reserve accept any price.
func (l *Listing) ReserveMet(price decimal.Decimal) bool {
	if l.ReservePrice == nil {
		return true
	}
	return price.GreaterThanOrEqual(*l.ReservePrice)
}
