package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/adapters/lock"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/adapters/memory"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/app"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/config"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/listing"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound/mock"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"
)

func newTestListing() *listing.Listing {
	return &listing.Listing{
		ID:                uuid.New(),
		SellerID:          uuid.New(),
		Status:            listing.StatusActive,
		Complete:          true,
		StartingPrice:     decimal.NewFromInt(20),
		AvailableQuantity: decimal.NewFromInt(100),
		Currency:          "SEK",
		Unit:              "tons",
		EndTime:           time.Now().Add(time.Hour),
		AllowThirdParty:   true,
	}
}

func dial(t *testing.T, server *httptest.Server, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?user_id=" + userID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// await reads until a message of the wanted type arrives
func await(t *testing.T, conn *websocket.Conn, want MessageType) *ServerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return &msg
		}
	}
}

func TestWebSocketBiddingSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := newTestListing()
	bidderID := uuid.New()

	service, err := app.NewBidService(app.BidServiceParams{
		Store:            memory.NewStore(),
		Listings:         memory.NewListings(l),
		Identities:       memory.NewIdentities(memory.Bidder{ID: bidderID, Active: true, CanBid: true}),
		Locker:           lock.NewLocalLocker(time.Second),
		AutoBidIncrement: decimal.NewFromInt(1),
		Logger:           zerolog.Nop(),
	})
	if err != nil {
		t.Fatal(err)
	}

	subscribed := make(chan chan outbound.Event, 1)
	broadcaster := mock.NewMockBroadcaster(ctrl)
	broadcaster.EXPECT().
		Subscribe(gomock.Any(), l.ID, gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, listingID uuid.UUID, clientID string, events chan outbound.Event) error {
			subscribed <- events
			return nil
		})
	unsubscribed := make(chan struct{})
	broadcaster.EXPECT().
		Unsubscribe(gomock.Any(), l.ID, gomock.Any()).
		DoAndReturn(func(ctx context.Context, listingID uuid.UUID, clientID string) error {
			close(unsubscribed)
			return nil
		})

	handler := NewHandler(WsHandlerParams{
		Config:      config.WebSocketConfig{MaxWorkers: 1, MaxCapacity: 10},
		BidService:  service,
		Broadcaster: broadcaster,
		Logger:      zerolog.Nop(),
	})
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	conn := dial(t, server, bidderID)

	if err := conn.WriteJSON(ClientMessage{Type: MessageTypePing}); err != nil {
		t.Fatal(err)
	}
	await(t, conn, MessageTypePong)

	if err := conn.WriteJSON(ClientMessage{Type: MessageTypeSubscribe, ListingID: &l.ID}); err != nil {
		t.Fatal(err)
	}
	if msg := await(t, conn, MessageTypeBidUpdate); msg.Data["status"] != "subscribed" {
		t.Fatalf("subscribe reply = %+v", msg)
	}

	err = conn.WriteJSON(ClientMessage{
		Type:      MessageTypePlaceBid,
		ListingID: &l.ID,
		Data:      map[string]interface{}{"price": "25.50", "volume": "10"},
	})
	if err != nil {
		t.Fatal(err)
	}
	reply := await(t, conn, MessageTypeBidUpdate)
	placed, ok := reply.Data["bid"].(map[string]interface{})
	if !ok || placed["status"] != "winning" || placed["price"] != "25.5" {
		t.Fatalf("place_bid reply = %+v", reply.Data)
	}

	// a bid at the winning price is rejected with a validation error
	err = conn.WriteJSON(ClientMessage{
		Type:      MessageTypePlaceBid,
		ListingID: &l.ID,
		Data:      map[string]interface{}{"price": 25.5, "volume": 10},
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg := await(t, conn, MessageTypeError); msg.Code != "validation" {
		t.Fatalf("error reply = %+v", msg)
	}

	events := <-subscribed
	price := decimal.NewFromInt(30)
	events <- outbound.Event{ID: uuid.New(), Type: outbound.EventTypeBidOutbid, ListingID: l.ID, Price: &price}
	if msg := await(t, conn, MessageTypeBidOutbid); msg.Data["price"] != "30" {
		t.Fatalf("forwarded event = %+v", msg)
	}

	if handler.GetConnectedClients() != 1 {
		t.Errorf("connected clients = %d, want 1", handler.GetConnectedClients())
	}

	// disconnecting releases the listing subscription
	conn.Close()
	select {
	case <-unsubscribed:
	case <-time.After(3 * time.Second):
		t.Fatal("client was not unsubscribed after disconnect")
	}
}

func TestWebSocketRejectsMissingUser(t *testing.T) {
	handler := NewHandler(WsHandlerParams{Logger: zerolog.Nop()})
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected the upgrade to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("response = %v", resp)
	}
}

func TestUnknownMessageIsReported(t *testing.T) {
	handler := NewHandler(WsHandlerParams{
		Config: config.WebSocketConfig{MaxWorkers: 1, MaxCapacity: 10},
		Logger: zerolog.Nop(),
	})
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	conn := dial(t, server, uuid.New())
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"create_auction"}`)); err != nil {
		t.Fatal(err)
	}
	if msg := await(t, conn, MessageTypeError); msg.Code != "validation" {
		t.Fatalf("error reply = %+v", msg)
	}
}
