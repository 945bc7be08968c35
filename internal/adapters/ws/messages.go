package ws

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/inbound"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MessageType string

const (
	// Client to Server message types
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypePlaceBid    MessageType = "place_bid"
	MessageTypeCancelBid   MessageType = "cancel_bid"
	MessageTypeGetBid      MessageType = "get_bid"
	MessageTypeListBids    MessageType = "list_bids"
	MessageTypeBidHistory  MessageType = "bid_history"
	MessageTypePing        MessageType = "ping"

	// Server to Client message types
	MessageTypeBidPlaced     MessageType = "bid_placed"
	MessageTypeBidOutbid     MessageType = "bid_outbid"
	MessageTypeAuctionWon    MessageType = "auction_won"
	MessageTypeAuctionLost   MessageType = "auction_lost"
	MessageTypeAuctionClosed MessageType = "auction_closed"
	MessageTypeBidUpdate     MessageType = "bid_update"
	MessageTypeError         MessageType = "error"
	MessageTypePong          MessageType = "pong"
)

type ClientMessage struct {
	Type      MessageType            `json:"type"`
	ListingID *uuid.UUID             `json:"listing_id,omitempty"`
	BidID     *uuid.UUID             `json:"bid_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// ServerMessage represents a message sent from server to client
type ServerMessage struct {
	Type      MessageType            `json:"type"`
	ListingID *uuid.UUID             `json:"listing_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     *string                `json:"error,omitempty"`
	Code      string                 `json:"code,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

func NewServerMessage(msgType MessageType) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now().Unix(),
	}
}

// NewErrorMessage reports err to the client together with its kind
func NewErrorMessage(err error, listingID *uuid.UUID) *ServerMessage {
	text := err.Error()
	return &ServerMessage{
		Type:      MessageTypeError,
		ListingID: listingID,
		Error:     &text,
		Code:      ErrorCode(err),
		Timestamp: time.Now().Unix(),
	}
}

// ErrorCode names the kind of a domain error for clients
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, shared.ErrBusy):
		return "busy"
	case errors.Is(err, shared.ErrAuctionClosed):
		return "auction_closed"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.Is(err, shared.ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}

// NewBidMessage describes the state of one bid
func NewBidMessage(msgType MessageType, b *bid.Bid) *ServerMessage {
	msg := NewServerMessage(msgType)
	msg.ListingID = &b.ListingID
	msg.Data["bid"] = b
	return msg
}

// NewEventMessage converts a broadcast event into the client message for it
func NewEventMessage(event outbound.Event) *ServerMessage {
	msgType := MessageTypeBidUpdate
	switch event.Type {
	case outbound.EventTypeBidPlaced:
		msgType = MessageTypeBidPlaced
	case outbound.EventTypeBidOutbid:
		msgType = MessageTypeBidOutbid
	case outbound.EventTypeAuctionWon:
		msgType = MessageTypeAuctionWon
	case outbound.EventTypeAuctionLost:
		msgType = MessageTypeAuctionLost
	case outbound.EventTypeAuctionClosed:
		msgType = MessageTypeAuctionClosed
	}

	listingID := event.ListingID
	data := make(map[string]interface{}, len(event.Data)+6)
	for k, v := range event.Data {
		data[k] = v
	}
	data["event_id"] = event.ID
	if event.BidID != nil {
		data["bid_id"] = *event.BidID
	}
	if event.BidderID != nil {
		data["bidder_id"] = *event.BidderID
	}
	if event.Price != nil {
		data["price"] = event.Price.String()
	}
	if event.Volume != nil {
		data["volume"] = event.Volume.String()
	}
	if event.TotalValue != nil {
		data["total_value"] = event.TotalValue.String()
	}
	if event.Currency != "" {
		data["currency"] = event.Currency
	}

	return &ServerMessage{
		Type:      msgType,
		ListingID: &listingID,
		Data:      data,
		Timestamp: event.Timestamp,
	}
}

func (m *ClientMessage) validateListingID() error {
	if m.ListingID == nil || *m.ListingID == uuid.Nil {
		return shared.ErrListingIDRequired
	}
	return nil
}

func (m *ClientMessage) validateBidID() error {
	if m.BidID == nil || *m.BidID == uuid.Nil {
		return shared.ErrBidIDRequired
	}
	return nil
}

// ParseClientMessage parses a JSON message from client. Numbers are kept
// as json.Number so prices reach decimal without a float round trip.
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&msg); err != nil {
		return nil, fmt.Errorf("failed to parse client message: %w", err)
	}

	if msg.Type == "" {
		return nil, shared.ErrMessageTypeRequired
	}

	return &msg, nil
}

// Validate validates a client message
func (m *ClientMessage) Validate() error {
	switch m.Type {
	case MessageTypeSubscribe, MessageTypeUnsubscribe:
		return m.validateListingID()
	case MessageTypePlaceBid:
		if err := m.validateListingID(); err != nil {
			return err
		}
		if _, err := m.decimal("price"); err != nil {
			return err
		}
		if _, err := m.decimal("volume"); err != nil {
			return err
		}
	case MessageTypeCancelBid, MessageTypeGetBid, MessageTypeBidHistory:
		return m.validateBidID()
	case MessageTypeListBids:

	case MessageTypePing:

	default:
		return shared.ErrUnknownMessageType
	}

	return nil
}

// decimal reads a required decimal field of Data
func (m *ClientMessage) decimal(key string) (decimal.Decimal, error) {
	d, ok, err := m.optionalDecimal(key)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, shared.Validationf("%s is required", key)
	}
	return d, nil
}

// optionalDecimal reads a decimal field that may be absent. Strings and
// numbers are accepted.
func (m *ClientMessage) optionalDecimal(key string) (decimal.Decimal, bool, error) {
	raw, ok := m.Data[key]
	if !ok || raw == nil {
		return decimal.Zero, false, nil
	}

	var (
		d   decimal.Decimal
		err error
	)
	switch v := raw.(type) {
	case json.Number:
		d, err = decimal.NewFromString(v.String())
	case string:
		d, err = decimal.NewFromString(v)
	case float64:
		d = decimal.NewFromFloat(v)
	default:
		return decimal.Zero, false, shared.ErrInvalidDecimal
	}
	if err != nil {
		return decimal.Zero, false, shared.ErrInvalidDecimal
	}
	return d, true, nil
}

func (m *ClientMessage) str(key string) string {
	s, _ := m.Data[key].(string)
	return s
}

func (m *ClientMessage) intValue(key string, fallback int) int {
	switch v := m.Data[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case float64:
		return int(v)
	}
	return fallback
}

// SubmitRequest builds the submission a place_bid message asks for
func (m *ClientMessage) SubmitRequest(bidderID uuid.UUID) (inbound.SubmitBidRequest, error) {
	if err := m.validateListingID(); err != nil {
		return inbound.SubmitBidRequest{}, err
	}
	price, err := m.decimal("price")
	if err != nil {
		return inbound.SubmitBidRequest{}, err
	}
	volume, err := m.decimal("volume")
	if err != nil {
		return inbound.SubmitBidRequest{}, err
	}

	req := inbound.SubmitBidRequest{
		ListingID:  *m.ListingID,
		BidderID:   bidderID,
		Price:      price,
		Volume:     volume,
		VolumeKind: bid.VolumeKind(m.str("volume_kind")),
		Note:       m.str("note"),
	}

	ceiling, ok, err := m.optionalDecimal("max_auto_bid_price")
	if err != nil {
		return inbound.SubmitBidRequest{}, err
	}
	if ok {
		req.MaxAutoBidPrice = &ceiling
	}
	return req, nil
}

// ListRequest builds the query a list_bids message asks for. Without a
// listing it lists the caller's own bids.
func (m *ClientMessage) ListRequest(bidderID uuid.UUID) inbound.ListBidsRequest {
	req := inbound.ListBidsRequest{
		ListingID: m.ListingID,
		Limit:     m.intValue("limit", 50),
	}
	if mine, _ := m.Data["mine"].(bool); mine || m.ListingID == nil {
		req.BidderID = &bidderID
	}
	if status := m.str("status"); status != "" {
		req.Statuses = []bid.Status{bid.Status(status)}
	}
	return req
}
