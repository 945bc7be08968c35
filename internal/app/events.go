package app

import (
	"context"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/listing"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/google/uuid"
)

// noopPublisher drops events when no publisher is wired
type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, outbound.Event) {}

func bidEvent(eventType outbound.EventType, b *bid.Bid, l *listing.Listing, now time.Time) outbound.Event {
	bidID, bidderID := b.ID, b.BidderID
	price, volume, total := b.Price, b.Volume, b.TotalValue
	return outbound.Event{
		ID:         uuid.New(),
		Type:       eventType,
		ListingID:  b.ListingID,
		BidID:      &bidID,
		BidderID:   &bidderID,
		Price:      &price,
		Volume:     &volume,
		TotalValue: &total,
		Currency:   l.Currency,
		Data: map[string]interface{}{
			"status":      b.Status,
			"is_auto_bid": b.IsAutoBid,
			"volume_kind": b.VolumeKind,
		},
		Timestamp: now.Unix(),
	}
}

func closedEvent(result *shared.AuctionCloseResult, l *listing.Listing) outbound.Event {
	event := outbound.Event{
		ID:        uuid.New(),
		Type:      outbound.EventTypeAuctionClosed,
		ListingID: result.ListingID,
		Currency:  l.Currency,
		Data: map[string]interface{}{
			"outcome": result.Outcome,
		},
		Timestamp: result.ClosedAt.Unix(),
	}
	if result.WinningBidID != nil {
		event.BidID = result.WinningBidID
		event.BidderID = result.WinnerID
		event.Price = result.FinalPrice
	}
	return event
}

// publishSettlement emits won/lost events for bids settled by a closure and
// the closure itself.
func publishSettlement(ctx context.Context, events outbound.EventPublisher, l *listing.Listing, settled []*bid.Bid, result *shared.AuctionCloseResult) {
	for _, b := range settled {
		switch b.Status {
		case bid.StatusWon:
			events.Publish(ctx, bidEvent(outbound.EventTypeAuctionWon, b, l, result.ClosedAt))
		case bid.StatusLost:
			events.Publish(ctx, bidEvent(outbound.EventTypeAuctionLost, b, l, result.ClosedAt))
		}
	}
	events.Publish(ctx, closedEvent(result, l))
}
