package ws

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestParseAndValidate(t *testing.T) {
	listingID := uuid.New()
	bidID := uuid.New()

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"missing type", `{"listing_id":"` + listingID.String() + `"}`, shared.ErrMessageTypeRequired},
		{"unknown type", `{"type":"create_auction"}`, shared.ErrUnknownMessageType},
		{"ping", `{"type":"ping"}`, nil},
		{"subscribe without listing", `{"type":"subscribe"}`, shared.ErrListingIDRequired},
		{"subscribe", `{"type":"subscribe","listing_id":"` + listingID.String() + `"}`, nil},
		{"cancel without bid", `{"type":"cancel_bid"}`, shared.ErrBidIDRequired},
		{"history", `{"type":"bid_history","bid_id":"` + bidID.String() + `"}`, nil},
		{"list without listing", `{"type":"list_bids"}`, nil},
		{
			"place bid with string price",
			`{"type":"place_bid","listing_id":"` + listingID.String() + `","data":{"price":"55.25","volume":10}}`,
			nil,
		},
		{
			"place bid with bad price",
			`{"type":"place_bid","listing_id":"` + listingID.String() + `","data":{"price":"lots","volume":10}}`,
			shared.ErrInvalidDecimal,
		},
		{
			"place bid with boolean volume",
			`{"type":"place_bid","listing_id":"` + listingID.String() + `","data":{"price":1,"volume":true}}`,
			shared.ErrInvalidDecimal,
		},
		{
			"place bid without volume",
			`{"type":"place_bid","listing_id":"` + listingID.String() + `","data":{"price":1}}`,
			shared.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseClientMessage([]byte(tt.raw))
			if err == nil {
				err = msg.Validate()
			}
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":`)); err == nil {
		t.Fatal("expected an error")
	}
}

func TestSubmitRequestKeepsDecimalPrecision(t *testing.T) {
	listingID := uuid.New()
	bidderID := uuid.New()
	raw := fmt.Sprintf(`{"type":"place_bid","listing_id":%q,"data":{
		"price": 0.1000000000000000055511,
		"volume": "12.5",
		"volume_kind": "partial",
		"max_auto_bid_price": "70",
		"note": "delivery in May"
	}}`, listingID)

	msg, err := ParseClientMessage([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	req, err := msg.SubmitRequest(bidderID)
	if err != nil {
		t.Fatal(err)
	}

	if req.ListingID != listingID || req.BidderID != bidderID {
		t.Errorf("ids not carried over: %+v", req)
	}
	if want := decimal.RequireFromString("0.1000000000000000055511"); !req.Price.Equal(want) {
		t.Errorf("price = %s, want %s", req.Price, want)
	}
	if !req.Volume.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("volume = %s", req.Volume)
	}
	if req.VolumeKind != bid.VolumePartial || req.Note != "delivery in May" {
		t.Errorf("unexpected request %+v", req)
	}
	if req.MaxAutoBidPrice == nil || !req.MaxAutoBidPrice.Equal(decimal.NewFromInt(70)) {
		t.Errorf("ceiling = %v", req.MaxAutoBidPrice)
	}
}

func TestListRequestDefaultsToOwnBids(t *testing.T) {
	bidderID := uuid.New()

	msg, err := ParseClientMessage([]byte(`{"type":"list_bids","data":{"limit":5,"status":"won"}}`))
	if err != nil {
		t.Fatal(err)
	}
	req := msg.ListRequest(bidderID)
	if req.BidderID == nil || *req.BidderID != bidderID {
		t.Errorf("bidder filter = %v, want %s", req.BidderID, bidderID)
	}
	if req.Limit != 5 || len(req.Statuses) != 1 || req.Statuses[0] != bid.StatusWon {
		t.Errorf("unexpected request %+v", req)
	}

	listingID := uuid.New()
	msg.ListingID = &listingID
	msg.Data = nil
	req = msg.ListRequest(bidderID)
	if req.BidderID != nil || req.Limit != 50 {
		t.Errorf("listing query = %+v", req)
	}
}

func TestNewEventMessage(t *testing.T) {
	listingID, bidID, bidderID := uuid.New(), uuid.New(), uuid.New()
	price := decimal.RequireFromString("61")

	tests := []struct {
		eventType outbound.EventType
		want      MessageType
	}{
		{outbound.EventTypeBidPlaced, MessageTypeBidPlaced},
		{outbound.EventTypeBidOutbid, MessageTypeBidOutbid},
		{outbound.EventTypeAuctionWon, MessageTypeAuctionWon},
		{outbound.EventTypeAuctionLost, MessageTypeAuctionLost},
		{outbound.EventTypeAuctionClosed, MessageTypeAuctionClosed},
		{outbound.EventType("bid.other"), MessageTypeBidUpdate},
	}
	for _, tt := range tests {
		msg := NewEventMessage(outbound.Event{
			ID:        uuid.New(),
			Type:      tt.eventType,
			ListingID: listingID,
			BidID:     &bidID,
			BidderID:  &bidderID,
			Price:     &price,
			Currency:  "SEK",
			Data:      map[string]interface{}{"status": "winning"},
			Timestamp: 42,
		})
		if msg.Type != tt.want {
			t.Errorf("%s mapped to %s, want %s", tt.eventType, msg.Type, tt.want)
		}
		if *msg.ListingID != listingID || msg.Timestamp != 42 {
			t.Errorf("listing or timestamp lost: %+v", msg)
		}
		if msg.Data["price"] != "61" || msg.Data["bid_id"] != bidID || msg.Data["status"] != "winning" {
			t.Errorf("unexpected data %v", msg.Data)
		}
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{shared.ErrListingBusy, "busy"},
		{shared.ErrAuctionEnded, "auction_closed"},
		{shared.ErrBidNotFound, "not_found"},
		{shared.ErrInvalidPrice, "validation"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		if got := ErrorCode(tt.err); got != tt.want {
			t.Errorf("ErrorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}

	msg := NewErrorMessage(shared.ErrListingBusy, nil)
	if msg.Type != MessageTypeError || msg.Error == nil || msg.Code != "busy" {
		t.Errorf("unexpected error message %+v", msg)
	}
}
