package outbound

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=broadcaster.go -destination=mock/broadcaster.go -package=mock

// EventType represents the type of event being published
type EventType string

const (
	EventTypeBidPlaced     EventType = "bid.placed"
	EventTypeBidOutbid     EventType = "bid.outbid"
	EventTypeAuctionWon    EventType = "auction.won"
	EventTypeAuctionLost   EventType = "auction.lost"
	EventTypeAuctionClosed EventType = "auction.closed"
)

// Event represents a bidding event
type Event struct {
	ID         uuid.UUID              `json:"id"`
	Type       EventType              `json:"type"`
	ListingID  uuid.UUID              `json:"listing_id"`
	BidID      *uuid.UUID             `json:"bid_id,omitempty"`
	BidderID   *uuid.UUID             `json:"bidder_id,omitempty"`
	Price      *decimal.Decimal       `json:"price,omitempty"`
	Volume     *decimal.Decimal       `json:"volume,omitempty"`
	TotalValue *decimal.Decimal       `json:"total_value,omitempty"`
	Currency   string                 `json:"currency,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Timestamp  int64                  `json:"timestamp"`
}

// EventPublisher hands events off for delivery. Publishing never fails the
// operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// EventSink is one delivery target of published events
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}

// Broadcaster fans listing events out to realtime subscribers
type Broadcaster interface {
	EventSink

	// Subscribe subscribes a client to events for a specific listing
	// When a client subscribes to multiple listings, all events are delivered to the same channel
	Subscribe(ctx context.Context, listingID uuid.UUID, clientID string, eventChan chan Event) error

	// Unsubscribe unsubscribes a client from events for a specific listing
	Unsubscribe(ctx context.Context, listingID uuid.UUID, clientID string) error

	// GetSubscribers returns the list of client IDs subscribed to a listing
	GetSubscribers(ctx context.Context, listingID uuid.UUID) ([]string, error)

	// IsSubscribed checks if a client is subscribed to a listing
	IsSubscribed(ctx context.Context, listingID uuid.UUID, clientID string) bool
}
