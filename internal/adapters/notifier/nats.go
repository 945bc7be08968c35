// Package notifier persists bidding events on a JetStream stream for the
// notification and settlement consumers.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

const subjectPrefix = "bidding.events"

// Subject is the subject an event is stored under:
// bidding.events.<listing_id>.<event type>
func Subject(event outbound.Event) string {
	return fmt.Sprintf("%s.%s.%s", subjectPrefix, event.ListingID.String(), event.Type)
}

// JetStreamNotifier implements outbound.EventSink
type JetStreamNotifier struct {
	js     jetstream.JetStream
	stream string
	logger zerolog.Logger
}

type JetStreamNotifierParams struct {
	Conn   *nats.Conn
	Stream string
	MaxAge time.Duration
	Logger zerolog.Logger
}

// NewJetStreamNotifier makes sure the stream exists and returns a sink
// publishing into it.
func NewJetStreamNotifier(ctx context.Context, params JetStreamNotifierParams) (*JetStreamNotifier, error) {
	js, err := jetstream.New(params.Conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        params.Stream,
		Description: "Bid lifecycle and auction settlement events",
		Subjects:    []string{subjectPrefix + ".>"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      maxAge,
		Duplicates:  2 * time.Minute,
		Replicas:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create/update stream: %w", err)
	}

	logger := params.Logger.With().Str("component", "jetstream_notifier").Logger()
	logger.Info().Str("stream", params.Stream).Msg("JetStream stream ready")

	return &JetStreamNotifier{js: js, stream: params.Stream, logger: logger}, nil
}

// Publish stores the event and waits for the server ack. The event id is
// the message id, so a redelivered event is deduplicated by the stream.
func (n *JetStreamNotifier) Publish(ctx context.Context, event outbound.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := n.js.Publish(ctx, Subject(event), data, jetstream.WithMsgID(event.ID.String()))
	if err != nil {
		return fmt.Errorf("failed to publish to JetStream: %w", err)
	}

	n.logger.Debug().
		Str("subject", Subject(event)).
		Uint64("seq", ack.Sequence).
		Bool("duplicate", ack.Duplicate).
		Msg("Event stored")
	return nil
}
