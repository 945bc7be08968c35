package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound/mock"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"
)

func TestDispatcherDeliversToEverySink(t *testing.T) {
	ctrl := gomock.NewController(t)
	event := outbound.Event{ID: uuid.New(), Type: outbound.EventTypeBidPlaced, ListingID: uuid.New()}

	healthy := mock.NewMockEventSink(ctrl)
	healthy.EXPECT().Publish(gomock.Any(), event).Return(nil)
	failing := mock.NewMockEventSink(ctrl)
	failing.EXPECT().Publish(gomock.Any(), event).Return(errors.New("broker down"))

	d := NewDispatcher(DispatcherParams{
		Sinks:  []outbound.EventSink{healthy, failing},
		Logger: zerolog.Nop(),
	})
	d.Publish(context.Background(), event)
	d.Close()
}

func TestDispatcherOutlivesRequestContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	event := outbound.Event{ID: uuid.New(), Type: outbound.EventTypeBidOutbid, ListingID: uuid.New()}

	sink := mock.NewMockEventSink(ctrl)
	sink.EXPECT().Publish(gomock.Any(), event).DoAndReturn(func(ctx context.Context, _ outbound.Event) error {
		if err := ctx.Err(); err != nil {
			t.Errorf("delivery context already done: %v", err)
		}
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("delivery context has no deadline")
		}
		return nil
	})

	d := NewDispatcher(DispatcherParams{
		Sinks:   []outbound.EventSink{sink},
		Timeout: time.Second,
		Logger:  zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	d.Publish(ctx, event)
	cancel()
	d.Close()
}
