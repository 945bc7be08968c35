package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/inbound"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper periodically closes listings that ended more than the grace period
// ago and were missed by the closing scheduler.
type Sweeper struct {
	cron     *cron.Cron
	closer   inbound.AuctionCloser
	schedule string
	timeout  time.Duration
	logger   zerolog.Logger
}

type SweeperParams struct {
	Closer inbound.AuctionCloser
	// Schedule is a cron spec with a seconds field, or a descriptor such as
	// "@every 1m".
	Schedule string
	Timeout  time.Duration
	Logger   zerolog.Logger
}

func NewSweeper(params SweeperParams) *Sweeper {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Sweeper{
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		closer:   params.Closer,
		schedule: params.Schedule,
		timeout:  timeout,
		logger:   params.Logger.With().Str("component", "sweeper").Logger(),
	}
}

// Start registers the sweep and starts the cron runner
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info().Str("schedule", s.schedule).Msg("Starting expired listing sweeper")

	if _, err := s.cron.AddFunc(s.schedule, func() { s.Sweep(ctx) }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	return nil
}

// Sweep runs one pass
func (s *Sweeper) Sweep(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	closed, err := s.closer.SweepExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("Sweep failed")
		return closed
	}
	if closed > 0 {
		s.logger.Info().Int("closed", closed).Msg("Sweep closed expired listings")
	}
	return closed
}

// Stop stops the runner and waits for a running sweep
func (s *Sweeper) Stop() {
	s.logger.Info().Msg("Stopping expired listing sweeper")
	<-s.cron.Stop().Done()
}
