package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/ledger"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/ranking"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	defaultSweepConcurrency = 4
	defaultSweepLimit       = 100
)

// AuctionCloser finalizes ended listings
type AuctionCloser struct {
	section
	listings    outbound.ListingProvider
	events      outbound.EventPublisher
	gracePeriod time.Duration
	concurrency int
	sweepLimit  int
	now         func() time.Time
	logger      zerolog.Logger
}

type AuctionCloserParams struct {
	Store       outbound.Store
	Listings    outbound.ListingProvider
	Locker      outbound.ListingLocker
	Events      outbound.EventPublisher
	GracePeriod time.Duration
	Concurrency int
	SweepLimit  int
	Now         func() time.Time
	Logger      zerolog.Logger
}

// NewAuctionCloser creates a new auction closer
func NewAuctionCloser(params AuctionCloserParams) *AuctionCloser {
	closer := &AuctionCloser{
		section:     section{locker: params.Locker, store: params.Store},
		listings:    params.Listings,
		events:      params.Events,
		gracePeriod: params.GracePeriod,
		concurrency: params.Concurrency,
		sweepLimit:  params.SweepLimit,
		now:         params.Now,
		logger:      params.Logger.With().Str("component", "auction_closer").Logger(),
	}
	if closer.events == nil {
		closer.events = noopPublisher{}
	}
	if closer.concurrency <= 0 {
		closer.concurrency = defaultSweepConcurrency
	}
	if closer.sweepLimit <= 0 {
		closer.sweepLimit = defaultSweepLimit
	}
	if closer.now == nil {
		closer.now = time.Now
	}
	return closer
}

// Close resolves the winner of an ended listing. Closing an already closed
// listing returns the recorded result without writing anything.
func (c *AuctionCloser) Close(ctx context.Context, listingID uuid.UUID) (*shared.AuctionCloseResult, error) {
	l, err := c.listings.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if prior, err := c.store.Closures().Get(ctx, listingID); err != nil {
		return nil, err
	} else if prior != nil {
		return alreadyClosed(prior), nil
	}

	if !l.HasEnded(c.now()) {
		return nil, shared.ErrAuctionNotEnded
	}

	var (
		result  *shared.AuctionCloseResult
		settled []*bid.Bid
	)
	err = c.run(ctx, listingID, func(ctx context.Context, repos outbound.Repositories) error {
		prior, err := repos.Closures().Get(ctx, listingID)
		if err != nil {
			return err
		}
		if prior != nil {
			result = alreadyClosed(prior)
			return nil
		}

		live, err := repos.Bids().ListLive(ctx, listingID)
		if err != nil {
			return err
		}

		now := c.now()
		ranked := ranking.Rank(live)
		winner := ranked.Winner
		result = &shared.AuctionCloseResult{ListingID: listingID, ClosedAt: now}

		switch {
		case winner == nil:
			result.Outcome = shared.OutcomeNoBids
		case !l.ReserveMet(winner.Price):
			result.Outcome = shared.OutcomeReserveNotMet
			winner = nil
		default:
			result.Outcome = shared.OutcomeWon
			winningBidID, winnerID, price := winner.ID, winner.BidderID, winner.Price
			result.WinningBidID = &winningBidID
			result.WinnerID = &winnerID
			result.FinalPrice = &price
		}

		changes := newChangeSet(now)
		for _, b := range ranked.Ordered {
			changes.touch(b, ledger.ReasonAuctionClosed, string(result.Outcome))
			next := bid.StatusLost
			if b == winner {
				next = bid.StatusWon
			}
			if err := b.SetStatus(next, now); err != nil {
				return err
			}
		}
		if _, err := changes.commit(ctx, repos); err != nil {
			return err
		}
		if err := repos.Closures().Create(ctx, result); err != nil {
			return err
		}
		settled = cloneAll(ranked.Ordered)
		return nil
	})
	if err != nil {
		c.logger.Error().Err(err).Str("listing_id", listingID.String()).Msg("Failed to close listing")
		return nil, err
	}
	if result.AlreadyClosed {
		return result, nil
	}

	logger := c.logger.Info().
		Str("listing_id", listingID.String()).
		Str("outcome", string(result.Outcome)).
		Int("settled", len(settled))
	if result.WinnerID != nil {
		logger = logger.Str("winner_id", result.WinnerID.String())
	}
	if result.FinalPrice != nil {
		logger = logger.Str("final_price", result.FinalPrice.String())
	}
	logger.Msg("Listing closed")

	publishSettlement(ctx, c.events, l, settled, result)
	return result, nil
}

// SweepExpired closes listings that ended more than the grace period before
// now. A listing that fails to close is logged and left for the next sweep.
func (c *AuctionCloser) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	ids, err := c.listings.ListExpired(ctx, now.Add(-c.gracePeriod), c.sweepLimit)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	c.logger.Debug().Int("count", len(ids)).Msg("Found expired listings")

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(c.concurrency))
	var closed atomic.Int64

	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			result, err := c.Close(gctx, id)
			if err != nil {
				c.logger.Warn().Err(err).Str("listing_id", id.String()).Msg("Sweep could not close listing")
				return nil
			}
			if !result.AlreadyClosed {
				closed.Add(1)
			}
			return nil
		})
	}

	err = g.Wait()
	return int(closed.Load()), err
}

func alreadyClosed(prior *shared.AuctionCloseResult) *shared.AuctionCloseResult {
	result := *prior
	result.AlreadyClosed = true
	return &result
}
