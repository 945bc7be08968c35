// Package events delivers bidding events to their sinks off the request path.
package events

import (
	"context"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/alitto/pond"
	"github.com/rs/zerolog"
)

const defaultDeliveryTimeout = 5 * time.Second

// Dispatcher implements outbound.EventPublisher. Every event is handed to
// every sink on a worker pool; delivery failures are logged and dropped.
type Dispatcher struct {
	sinks   []outbound.EventSink
	pool    *pond.WorkerPool
	timeout time.Duration
	logger  zerolog.Logger
}

type DispatcherParams struct {
	Sinks         []outbound.EventSink
	Workers       int
	QueueCapacity int
	Timeout       time.Duration
	Logger        zerolog.Logger
}

func NewDispatcher(params DispatcherParams) *Dispatcher {
	logger := params.Logger.With().Str("component", "event_dispatcher").Logger()

	workers, capacity := params.Workers, params.QueueCapacity
	if workers <= 0 {
		workers = 4
	}
	if capacity <= 0 {
		capacity = 1000
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}

	pool := pond.New(
		workers,
		capacity,
		pond.Strategy(pond.Balanced()),
		pond.PanicHandler(func(p interface{}) {
			logger.Error().Interface("panic", p).Msg("Event sink panicked")
		}),
	)

	return &Dispatcher{
		sinks:   params.Sinks,
		pool:    pool,
		timeout: timeout,
		logger:  logger,
	}
}

// Publish queues the event for every sink. It never blocks: when the queue
// is full the event is dropped for that sink.
func (d *Dispatcher) Publish(ctx context.Context, event outbound.Event) {
	// the producing request may finish before delivery
	ctx = context.WithoutCancel(ctx)

	for _, sink := range d.sinks {
		sink := sink
		queued := d.pool.TrySubmit(func() {
			deliveryCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			if err := sink.Publish(deliveryCtx, event); err != nil {
				d.logger.Warn().
					Err(err).
					Str("event_id", event.ID.String()).
					Str("event_type", string(event.Type)).
					Str("listing_id", event.ListingID.String()).
					Msg("Failed to deliver event")
			}
		})
		if !queued {
			d.logger.Warn().
				Str("event_id", event.ID.String()).
				Str("event_type", string(event.Type)).
				Msg("Event queue full, dropping event")
		}
	}
}

// Close waits for queued deliveries to finish
func (d *Dispatcher) Close() {
	d.pool.StopAndWait()
}
