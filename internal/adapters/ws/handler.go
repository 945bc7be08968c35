package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/config"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/inbound"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const writeWait = 10 * time.Second

// WsHandler manages WebSocket connections and message routing
type WsHandler struct {
	clients       map[string]*WsClient // clientID -> Client
	clientsMu     sync.RWMutex
	eventChannels map[string]chan outbound.Event // clientID -> local event channel
	subscriptions map[string]map[uuid.UUID]struct{}
	channelsMu    sync.RWMutex
	upgrader      websocket.Upgrader
	config        config.WebSocketConfig
	bidService    inbound.BidService
	broadcaster   outbound.Broadcaster
	logger        zerolog.Logger
}

type WsHandlerParams struct {
	Upgrader    websocket.Upgrader
	Config      config.WebSocketConfig
	BidService  inbound.BidService
	Broadcaster outbound.Broadcaster
	Logger      zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(params WsHandlerParams) *WsHandler {
	return &WsHandler{
		clients:       make(map[string]*WsClient),
		eventChannels: make(map[string]chan outbound.Event),
		subscriptions: make(map[string]map[uuid.UUID]struct{}),
		upgrader:      params.Upgrader,
		config:        params.Config,
		bidService:    params.BidService,
		broadcaster:   params.Broadcaster,
		logger:        params.Logger.With().Str("component", "ws_handler").Logger(),
	}
}

// HandleWebSocket handles WebSocket connection upgrades. The caller is
// identified by the user_id query parameter set by the marketplace gateway.
func (handler *WsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userIDStr := r.URL.Query().Get("user_id")
	if userIDStr == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		http.Error(w, "invalid user_id format", http.StatusBadRequest)
		return
	}

	conn, err := handler.upgrader.Upgrade(w, r, nil)
	if err != nil {
		handler.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := NewClient(WsClientParams{
		UserID:       userID,
		Conn:         conn,
		Handler:      handler,
		MaxWorkers:   handler.config.MaxWorkers,
		MaxCapacity:  handler.config.MaxCapacity,
		WriteTimeout: writeWait,
		Logger:       handler.logger,
	})

	handler.registerClient(client)
	handler.createEventChannel(client.id)

	client.Start()

	go handler.listenForClientEvents(client)

	go func() {
		<-client.ctx.Done()
		handler.unregisterClient(client)
	}()

	handler.logger.Info().Str("client_id", client.id).Str("user_id", client.userID.String()).Msg("WebSocket client connected")
}

// createEventChannel creates a local event channel for a client
func (handler *WsHandler) createEventChannel(clientID string) chan outbound.Event {
	handler.channelsMu.Lock()
	defer handler.channelsMu.Unlock()

	if eventChan, exists := handler.eventChannels[clientID]; exists {
		return eventChan
	}

	eventChan := make(chan outbound.Event, sendBuffer)
	handler.eventChannels[clientID] = eventChan
	handler.subscriptions[clientID] = make(map[uuid.UUID]struct{})

	handler.logger.Debug().Str("client_id", clientID).Msg("Created local event channel for client")
	return eventChan
}

func (handler *WsHandler) getEventChannel(clientID string) chan outbound.Event {
	handler.channelsMu.RLock()
	defer handler.channelsMu.RUnlock()

	return handler.eventChannels[clientID]
}

func (handler *WsHandler) trackSubscription(clientID string, listingID uuid.UUID, subscribed bool) {
	handler.channelsMu.Lock()
	defer handler.channelsMu.Unlock()

	listings, ok := handler.subscriptions[clientID]
	if !ok {
		return
	}
	if subscribed {
		listings[listingID] = struct{}{}
	} else {
		delete(listings, listingID)
	}
}

// removeEventChannel forgets the client's channel and returns the listings it
// was still subscribed to. The channel itself is left to the garbage collector
// since the broadcaster may still be writing to it.
func (handler *WsHandler) removeEventChannel(clientID string) []uuid.UUID {
	handler.channelsMu.Lock()
	defer handler.channelsMu.Unlock()

	var listings []uuid.UUID
	for listingID := range handler.subscriptions[clientID] {
		listings = append(listings, listingID)
	}
	delete(handler.subscriptions, clientID)
	delete(handler.eventChannels, clientID)
	return listings
}

func (handler *WsHandler) registerClient(client *WsClient) {
	handler.clientsMu.Lock()
	defer handler.clientsMu.Unlock()
	handler.clients[client.id] = client
	handler.logger.Debug().Str("client_id", client.id).Int("total_clients", len(handler.clients)).Msg("Client registered")
}

func (handler *WsHandler) unregisterClient(client *WsClient) {
	handler.clientsMu.Lock()
	delete(handler.clients, client.id)
	total := len(handler.clients)
	handler.clientsMu.Unlock()

	client.Stop()

	ctx := context.Background()
	for _, listingID := range handler.removeEventChannel(client.id) {
		if err := handler.broadcaster.Unsubscribe(ctx, listingID, client.id); err != nil {
			handler.logger.Error().Err(err).Str("client_id", client.id).Str("listing_id", listingID.String()).Msg("Failed to unsubscribe disconnected client")
		}
	}

	handler.logger.Info().Str("client_id", client.id).Str("user_id", client.userID.String()).Int("total_clients", total).Msg("WebSocket client disconnected")
}

// listenForClientEvents forwards broadcast events to the client
func (handler *WsHandler) listenForClientEvents(client *WsClient) {
	eventChan := handler.getEventChannel(client.id)
	if eventChan == nil {
		handler.logger.Error().Str("client_id", client.id).Msg("No event channel found for client")
		return
	}

	for {
		select {
		case event := <-eventChan:
			if err := client.Send(NewEventMessage(event)); err != nil {
				handler.logger.Error().Err(err).Str("client_id", client.id).Msg("Failed to send event to WebSocket client")
				continue
			}
			handler.logger.Debug().Str("client_id", client.id).Str("event_type", string(event.Type)).Msg("Sent event to WebSocket client")

		case <-client.ctx.Done():
			return
		}
	}
}

func (handler *WsHandler) HandleClientMessage(client *WsClient, msg *ClientMessage) error {
	switch msg.Type {
	case MessageTypeSubscribe:
		return handler.handleSubscribe(client, msg)

	case MessageTypeUnsubscribe:
		return handler.handleUnsubscribe(client, msg)

	case MessageTypePlaceBid:
		return handler.handlePlaceBid(client, msg)

	case MessageTypeCancelBid:
		return handler.handleCancelBid(client, msg)

	case MessageTypeGetBid:
		return handler.handleGetBid(client, msg)

	case MessageTypeListBids:
		return handler.handleListBids(client, msg)

	case MessageTypeBidHistory:
		return handler.handleBidHistory(client, msg)

	default:
		handler.logger.Warn().Str("client_id", client.id).Str("message_type", string(msg.Type)).Msg("Unknown message type from client")
		return shared.ErrUnknownMessageType
	}
}

// GetConnectedClients returns the number of connected clients
func (handler *WsHandler) GetConnectedClients() int {
	handler.clientsMu.RLock()
	defer handler.clientsMu.RUnlock()
	return len(handler.clients)
}

func (handler *WsHandler) handleSubscribe(client *WsClient, msg *ClientMessage) error {
	eventChan := handler.getEventChannel(client.id)
	if eventChan == nil {
		handler.logger.Error().Str("client_id", client.id).Msg("No event channel found for client")
		return shared.ErrClientEventChannelNotFound
	}

	if err := handler.broadcaster.Subscribe(client.ctx, *msg.ListingID, client.id, eventChan); err != nil {
		handler.logger.Error().Err(err).Str("client_id", client.id).Str("listing_id", msg.ListingID.String()).Msg("Failed to subscribe to listing")
		return err
	}
	handler.trackSubscription(client.id, *msg.ListingID, true)

	response := NewServerMessage(MessageTypeBidUpdate)
	response.ListingID = msg.ListingID
	response.Data["status"] = "subscribed"

	handler.logger.Info().Str("client_id", client.id).Str("listing_id", msg.ListingID.String()).Msg("Client subscribed to listing")
	return client.Send(response)
}

func (handler *WsHandler) handleUnsubscribe(client *WsClient, msg *ClientMessage) error {
	if err := handler.broadcaster.Unsubscribe(client.ctx, *msg.ListingID, client.id); err != nil {
		return err
	}
	handler.trackSubscription(client.id, *msg.ListingID, false)

	response := NewServerMessage(MessageTypeBidUpdate)
	response.ListingID = msg.ListingID
	response.Data["status"] = "unsubscribed"

	handler.logger.Info().Str("client_id", client.id).Str("listing_id", msg.ListingID.String()).Msg("Client unsubscribed from listing")
	return client.Send(response)
}

// handlePlaceBid submits a bid and answers with the bid's own state. The
// ranking changes reach subscribers through the broadcaster.
func (handler *WsHandler) handlePlaceBid(client *WsClient, msg *ClientMessage) error {
	req, err := msg.SubmitRequest(client.userID)
	if err != nil {
		return err
	}

	placed, err := handler.bidService.Submit(client.ctx, req)
	if err != nil {
		return client.Send(NewErrorMessage(err, msg.ListingID))
	}

	handler.logger.Info().
		Str("bid_id", placed.ID.String()).
		Str("listing_id", placed.ListingID.String()).
		Str("user_id", client.userID.String()).
		Str("price", placed.Price.String()).
		Str("status", string(placed.Status)).
		Msg("Bid submitted")

	return client.Send(NewBidMessage(MessageTypeBidUpdate, placed))
}

func (handler *WsHandler) handleCancelBid(client *WsClient, msg *ClientMessage) error {
	cancelled, err := handler.bidService.Cancel(client.ctx, *msg.BidID, client.userID)
	if err != nil {
		return client.Send(NewErrorMessage(err, msg.ListingID))
	}

	handler.logger.Info().Str("bid_id", cancelled.ID.String()).Str("user_id", client.userID.String()).Msg("Bid cancelled")
	return client.Send(NewBidMessage(MessageTypeBidUpdate, cancelled))
}

func (handler *WsHandler) handleGetBid(client *WsClient, msg *ClientMessage) error {
	b, err := handler.bidService.GetBid(client.ctx, *msg.BidID)
	if err != nil {
		return client.Send(NewErrorMessage(err, msg.ListingID))
	}
	return client.Send(NewBidMessage(MessageTypeBidUpdate, b))
}

func (handler *WsHandler) handleListBids(client *WsClient, msg *ClientMessage) error {
	bids, err := handler.bidService.ListBids(client.ctx, msg.ListRequest(client.userID))
	if err != nil {
		return client.Send(NewErrorMessage(err, msg.ListingID))
	}

	response := NewServerMessage(MessageTypeBidUpdate)
	response.ListingID = msg.ListingID
	response.Data["bids"] = bids
	response.Data["count"] = len(bids)
	return client.Send(response)
}

func (handler *WsHandler) handleBidHistory(client *WsClient, msg *ClientMessage) error {
	entries, err := handler.bidService.History(client.ctx, *msg.BidID)
	if err != nil {
		return client.Send(NewErrorMessage(err, msg.ListingID))
	}

	response := NewServerMessage(MessageTypeBidUpdate)
	response.ListingID = msg.ListingID
	response.Data["bid_id"] = *msg.BidID
	response.Data["history"] = entries
	return client.Send(response)
}
