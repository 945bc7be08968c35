package broadcaster

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ChannelName is the redis pub/sub channel carrying events of a listing
func ChannelName(listingID uuid.UUID) string {
	return fmt.Sprintf("listing:%s", listingID.String())
}

// subscription is one websocket client listening on one or more listings
type subscription struct {
	events   chan outbound.Event
	pubsub   *redis.PubSub
	listings map[uuid.UUID]struct{}
}

// RedisBroadcaster fans listing events out through redis pub/sub so every
// service instance delivers them to its own websocket clients.
type RedisBroadcaster struct {
	client  *redis.Client
	clients map[string]*subscription
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	logger  zerolog.Logger
}

type RedisBroadcasterParams struct {
	RedisClient *redis.Client
	Logger      zerolog.Logger
}

func NewBroadcaster(params RedisBroadcasterParams) *RedisBroadcaster {
	ctx, cancel := context.WithCancel(context.Background())

	return &RedisBroadcaster{
		client:  params.RedisClient,
		clients: make(map[string]*subscription),
		ctx:     ctx,
		cancel:  cancel,
		logger:  params.Logger.With().Str("component", "redis_broadcaster").Logger(),
	}
}

// Subscribe subscribes a client to events for a listing. All listings of a
// client share eventChan and one redis connection.
func (r *RedisBroadcaster) Subscribe(ctx context.Context, listingID uuid.UUID, clientID string, eventChan chan outbound.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, exists := r.clients[clientID]
	if exists {
		if _, subscribed := sub.listings[listingID]; subscribed {
			r.logger.Debug().
				Str("client_id", clientID).
				Str("listing_id", listingID.String()).
				Msg("Client already subscribed to listing")
			return nil
		}
	} else {
		sub = &subscription{
			events:   eventChan,
			pubsub:   r.client.Subscribe(ctx),
			listings: make(map[uuid.UUID]struct{}),
		}
		r.clients[clientID] = sub
		go r.forward(sub, clientID)
	}

	if err := sub.pubsub.Subscribe(ctx, ChannelName(listingID)); err != nil {
		r.logger.Error().Err(err).Str("client_id", clientID).Str("listing_id", listingID.String()).Msg("Failed to subscribe to Redis channel")
		if len(sub.listings) == 0 {
			r.drop(clientID, sub)
		}
		return fmt.Errorf("failed to subscribe to listing channel: %w", err)
	}
	sub.listings[listingID] = struct{}{}

	r.logger.Info().
		Str("client_id", clientID).
		Str("listing_id", listingID.String()).
		Msg("Client subscribed to listing")
	return nil
}

// Unsubscribe removes a client from a listing. The client's redis connection
// is released once it listens on no listing at all. eventChan stays open, it
// belongs to the subscriber.
func (r *RedisBroadcaster) Unsubscribe(ctx context.Context, listingID uuid.UUID, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, exists := r.clients[clientID]
	if !exists {
		return nil
	}
	if _, subscribed := sub.listings[listingID]; !subscribed {
		return nil
	}
	delete(sub.listings, listingID)

	if len(sub.listings) == 0 {
		r.drop(clientID, sub)
	} else if err := sub.pubsub.Unsubscribe(ctx, ChannelName(listingID)); err != nil {
		r.logger.Error().Err(err).Str("client_id", clientID).Str("listing_id", listingID.String()).Msg("Error unsubscribing from Redis channel")
	}

	r.logger.Info().
		Str("client_id", clientID).
		Str("listing_id", listingID.String()).
		Msg("Client unsubscribed from listing")
	return nil
}

// drop tears a client down. The caller holds r.mu.
func (r *RedisBroadcaster) drop(clientID string, sub *subscription) {
	if err := sub.pubsub.Close(); err != nil {
		r.logger.Error().Err(err).Str("client_id", clientID).Msg("Error closing Redis pubsub for client")
	}
	delete(r.clients, clientID)
}

// Publish sends an event to every subscriber of its listing
func (r *RedisBroadcaster) Publish(ctx context.Context, event outbound.Event) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result := r.client.Publish(ctx, ChannelName(event.ListingID), payload)
	if err := result.Err(); err != nil {
		r.logger.Error().Err(err).Str("listing_id", event.ListingID.String()).Msg("Failed to publish to Redis")
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}

	r.logger.Debug().
		Str("event_type", string(event.Type)).
		Str("listing_id", event.ListingID.String()).
		Int64("receivers", result.Val()).
		Msg("Published listing event")
	return nil
}

// GetSubscribers returns the clients of this instance listening on a listing
func (r *RedisBroadcaster) GetSubscribers(ctx context.Context, listingID uuid.UUID) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var subscribers []string
	for clientID, sub := range r.clients {
		if _, ok := sub.listings[listingID]; ok {
			subscribers = append(subscribers, clientID)
		}
	}
	return subscribers, nil
}

func (r *RedisBroadcaster) IsSubscribed(ctx context.Context, listingID uuid.UUID, clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, exists := r.clients[clientID]
	if !exists {
		return false
	}
	_, ok := sub.listings[listingID]
	return ok
}

// forward copies redis messages to the client's channel. A full channel
// drops the event rather than stalling the other listings of the client.
func (r *RedisBroadcaster) forward(sub *subscription, clientID string) {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error().Interface("panic", err).Str("client_id", clientID).Msg("Redis message listener panic for client")
		}
	}()

	ch := sub.pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event outbound.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Error().Err(err).Str("client_id", clientID).Msg("Failed to unmarshal Redis message for client")
				continue
			}

			select {
			case sub.events <- event:
			default:
				r.logger.Warn().Str("client_id", clientID).Str("event_type", string(event.Type)).Msg("Client channel full, dropping event")
			}

		case <-r.ctx.Done():
			return
		}
	}
}

// Close drops every client. The redis client is owned by the caller.
func (r *RedisBroadcaster) Close() error {
	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	for clientID, sub := range r.clients {
		r.drop(clientID, sub)
	}
	return nil
}
