package app

import (
	"context"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/listing"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/ranking"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/google/uuid"
)

// cascade re-bids for outbid bidders that hold a ceiling. Every step takes
// the listing section again, so other submissions interleave between steps.
func (s *BidService) cascade(ctx context.Context, l *listing.Listing, demoted []*bid.Bid) {
	var queue []uuid.UUID
	for _, d := range demoted {
		if d.HasCeiling() {
			queue = append(queue, d.ID)
		}
	}

	for steps := 0; len(queue) > 0; {
		if steps >= s.cascadeMaxSteps {
			s.logger.Warn().
				Str("listing_id", l.ID.String()).
				Int("steps", steps).
				Int("pending", len(queue)).
				Msg("Auto-bid cascade stopped at step limit")
			return
		}

		bidID := queue[0]
		queue = queue[1:]

		out, err := s.autoBid(ctx, l, bidID)
		if err != nil {
			s.logger.Warn().Err(err).Str("bid_id", bidID.String()).Str("listing_id", l.ID.String()).Msg("Auto-bid step failed")
			continue
		}
		if out == nil {
			continue
		}
		steps++

		s.logger.Info().
			Str("bid_id", out.bid.ID.String()).
			Str("listing_id", l.ID.String()).
			Str("price", out.bid.Price.String()).
			Msg("Auto-bid placed")

		s.publishOutcome(ctx, l, out)
		for _, d := range out.demoted {
			if d.HasCeiling() {
				queue = append(queue, d.ID)
			}
		}
	}
}

// autoBid raises one outbid bid against the current winner. It returns nil
// when the bid no longer qualifies.
func (s *BidService) autoBid(ctx context.Context, l *listing.Listing, bidID uuid.UUID) (*outcome, error) {
	var out *outcome
	err := s.run(ctx, l.ID, func(ctx context.Context, repos outbound.Repositories) error {
		now := s.now()
		if l.HasEnded(now) {
			return nil
		}

		live, err := repos.Bids().ListLive(ctx, l.ID)
		if err != nil {
			return err
		}
		target := findByID(live, bidID)
		if target == nil || target.Status != bid.StatusOutbid || !target.HasCeiling() {
			return nil
		}
		winner := ranking.Rank(live).Winner
		if winner == nil || winner.ID == target.ID {
			return nil
		}

		price, ok := bid.NextAutoBidPrice(target, winner, s.increment)
		if !ok {
			return nil
		}

		out, err = s.submitLocked(ctx, repos, l, target.BidderID, bid.Terms{
			Price:      price,
			Volume:     target.Volume,
			VolumeKind: target.VolumeKind,
			IsAutoBid:  true,
		}, now)
		return err
	})
	return out, err
}
