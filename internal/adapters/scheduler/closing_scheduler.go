package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/inbound"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ClosingsKey is the sorted set of listings scored by end time
const ClosingsKey = "listing:closings"

const batchSize = 10

// ClosingScheduler closes listings at their end time. It implements
// outbound.ClosingScheduler; the schedule lives in redis so any instance can
// pick a listing up.
type ClosingScheduler struct {
	redis    *redis.Client
	closer   inbound.AuctionCloser
	inflight sync.Map
	logger   zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

type ClosingSchedulerParams struct {
	RedisClient *redis.Client
	Closer      inbound.AuctionCloser
	Logger      zerolog.Logger
}

func NewClosingScheduler(params ClosingSchedulerParams) *ClosingScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &ClosingScheduler{
		redis:  params.RedisClient,
		closer: params.Closer,
		logger: params.Logger.With().Str("component", "closing_scheduler").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ScheduleClosing records the end time of a listing. Scheduling again only
// moves the entry.
func (s *ClosingScheduler) ScheduleClosing(ctx context.Context, listingID uuid.UUID, endTime time.Time) error {
	err := s.redis.ZAdd(ctx, ClosingsKey, redis.Z{
		Score:  float64(endTime.Unix()),
		Member: listingID.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule listing closing: %w", err)
	}

	s.logger.Debug().
		Str("listing_id", listingID.String()).
		Time("end_time", endTime).
		Msg("Listing closing scheduled")
	return nil
}

// Start begins the scheduler loop
func (s *ClosingScheduler) Start() {
	s.logger.Info().Msg("Starting closing scheduler")

	s.wg.Add(1)
	go s.loop()
}

// Stop stops the loop and waits for running closings
func (s *ClosingScheduler) Stop() {
	s.logger.Info().Msg("Stopping closing scheduler")
	s.cancel()
	s.wg.Wait()
}

func (s *ClosingScheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.closeDue(time.Now())
		case <-s.ctx.Done():
			return
		}
	}
}

// closeDue starts closing every listing whose end time has passed
func (s *ClosingScheduler) closeDue(now time.Time) {
	due, err := s.redis.ZRangeByScore(s.ctx, ClosingsKey, &redis.ZRangeBy{
		Min:   "0",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: batchSize,
	}).Result()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read due closings")
		return
	}

	for _, member := range due {
		listingID, err := uuid.Parse(member)
		if err != nil {
			s.logger.Error().Err(err).Str("member", member).Msg("Invalid listing ID in schedule")
			s.redis.ZRem(s.ctx, ClosingsKey, member)
			continue
		}
		if _, running := s.inflight.LoadOrStore(listingID, struct{}{}); running {
			continue
		}

		s.wg.Add(1)
		go s.close(listingID)
	}
}

func (s *ClosingScheduler) close(listingID uuid.UUID) {
	defer s.wg.Done()
	defer s.inflight.Delete(listingID)

	result, err := s.closer.Close(s.ctx, listingID)
	switch {
	case err == nil:
		s.logger.Info().
			Str("listing_id", listingID.String()).
			Str("outcome", string(result.Outcome)).
			Bool("already_closed", result.AlreadyClosed).
			Msg("Scheduled closing done")
	case errors.Is(err, shared.ErrNotFound):
		s.logger.Warn().Str("listing_id", listingID.String()).Msg("Scheduled listing no longer exists")
	default:
		// left in the set, retried on a later tick or by the sweep
		s.logger.Error().Err(err).Str("listing_id", listingID.String()).Msg("Scheduled closing failed")
		return
	}

	if err := s.redis.ZRem(s.ctx, ClosingsKey, listingID.String()).Err(); err != nil {
		s.logger.Error().Err(err).Str("listing_id", listingID.String()).Msg("Failed to remove listing from schedule")
	}
}
