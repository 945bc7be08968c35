package app

import (
	"context"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/ledger"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/listing"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/ranking"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/inbound"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const defaultCascadeMaxSteps = 100

// BidService implements the bid lifecycle use cases
type BidService struct {
	section
	listings        outbound.ListingProvider
	identities      outbound.IdentityProvider
	events          outbound.EventPublisher
	scheduler       outbound.ClosingScheduler
	increment       decimal.Decimal
	cascadeMaxSteps int
	now             func() time.Time
	logger          zerolog.Logger
}

type BidServiceParams struct {
	Store            outbound.Store
	Listings         outbound.ListingProvider
	Identities       outbound.IdentityProvider
	Locker           outbound.ListingLocker
	Events           outbound.EventPublisher
	Scheduler        outbound.ClosingScheduler
	AutoBidIncrement decimal.Decimal
	CascadeMaxSteps  int
	Now              func() time.Time
	Logger           zerolog.Logger
}

// NewBidService creates a new bid service
func NewBidService(params BidServiceParams) (*BidService, error) {
	if !params.AutoBidIncrement.IsPositive() {
		return nil, shared.ErrInvalidAutoIncrement
	}

	service := &BidService{
		section:         section{locker: params.Locker, store: params.Store},
		listings:        params.Listings,
		identities:      params.Identities,
		events:          params.Events,
		scheduler:       params.Scheduler,
		increment:       params.AutoBidIncrement,
		cascadeMaxSteps: params.CascadeMaxSteps,
		now:             params.Now,
		logger:          params.Logger.With().Str("component", "bid_service").Logger(),
	}
	if service.events == nil {
		service.events = noopPublisher{}
	}
	if service.cascadeMaxSteps <= 0 {
		service.cascadeMaxSteps = defaultCascadeMaxSteps
	}
	if service.now == nil {
		service.now = time.Now
	}
	return service, nil
}

// outcome is what one committed mutation did to a listing
type outcome struct {
	bid     *bid.Bid
	demoted []*bid.Bid
	entries []ledger.Entry
}

// Submit places a new bid or revises the bidder's live bid on the listing
func (s *BidService) Submit(ctx context.Context, req inbound.SubmitBidRequest) (*bid.Bid, error) {
	s.logger.Info().
		Str("listing_id", req.ListingID.String()).
		Str("bidder_id", req.BidderID.String()).
		Str("price", req.Price.String()).
		Str("volume", req.Volume.String()).
		Msg("Attempting to submit bid")

	l, err := s.listings.GetListing(ctx, req.ListingID)
	if err != nil {
		s.logger.Warn().Err(err).Str("listing_id", req.ListingID.String()).Msg("Listing lookup failed")
		return nil, err
	}

	if req.VolumeKind == "" {
		req.VolumeKind = bid.VolumePartial
	}
	terms := bid.Terms{
		Price:           req.Price,
		Volume:          req.Volume,
		VolumeKind:      req.VolumeKind,
		MaxAutoBidPrice: req.MaxAutoBidPrice,
		Note:            req.Note,
	}

	if err := s.checkBidder(ctx, l, req.BidderID); err != nil {
		s.logger.Warn().Err(err).Str("bidder_id", req.BidderID.String()).Msg("Bidder rejected")
		return nil, err
	}
	if err := validateTerms(l, terms, s.now()); err != nil {
		s.logger.Warn().Err(err).Str("listing_id", l.ID.String()).Str("bidder_id", req.BidderID.String()).Msg("Bid rejected")
		return nil, err
	}

	var out *outcome
	err = s.run(ctx, l.ID, func(ctx context.Context, repos outbound.Repositories) error {
		var err error
		out, err = s.submitLocked(ctx, repos, l, req.BidderID, terms, s.now())
		return err
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("listing_id", l.ID.String()).Str("bidder_id", req.BidderID.String()).Msg("Failed to submit bid")
		return nil, err
	}

	s.logger.Info().
		Str("bid_id", out.bid.ID.String()).
		Str("listing_id", l.ID.String()).
		Str("status", string(out.bid.Status)).
		Int("demoted", len(out.demoted)).
		Msg("Bid submitted")

	s.publishOutcome(ctx, l, out)
	s.scheduleClosing(ctx, l)
	s.cascade(ctx, l, out.demoted)

	return out.bid, nil
}

// submitLocked applies terms for bidderID. The caller holds the listing section.
func (s *BidService) submitLocked(ctx context.Context, repos outbound.Repositories, l *listing.Listing, bidderID uuid.UUID, terms bid.Terms, now time.Time) (*outcome, error) {
	if l.HasEnded(now) {
		return nil, shared.ErrAuctionEnded
	}
	closure, err := repos.Closures().Get(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	if closure != nil {
		return nil, shared.ErrAuctionAlreadyClosed
	}

	live, err := repos.Bids().ListLive(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	if winner := ranking.Rank(live).Winner; winner != nil && !terms.Price.GreaterThan(winner.Price) {
		return nil, shared.ErrPriceNotAboveWinning
	}

	changes := newChangeSet(now)
	reason, note := ledger.ReasonPlaced, terms.Note
	if terms.IsAutoBid {
		reason, note = ledger.ReasonAutoBid, "automatic re-bid"
	}

	target := findByBidder(live, bidderID)
	if target != nil {
		if !terms.IsAutoBid {
			reason = ledger.ReasonUpdated
		}
		changes.touch(target, reason, note)
		target.Revise(terms, now)
	} else {
		target = bid.New(l.ID, bidderID, terms, now)
		changes.add(target, reason, note)
		live = append(live, target)
	}

	demoted, err := changes.rank(live)
	if err != nil {
		return nil, err
	}
	entries, err := changes.commit(ctx, repos)
	if err != nil {
		return nil, err
	}

	return &outcome{bid: target.Clone(), demoted: cloneAll(demoted), entries: entries}, nil
}

func (s *BidService) checkBidder(ctx context.Context, l *listing.Listing, bidderID uuid.UUID) error {
	if bidderID == l.SellerID {
		return shared.ErrSelfBid
	}
	if s.identities == nil {
		return nil
	}

	authenticated, err := s.identities.IsAuthenticated(ctx, bidderID)
	if err != nil {
		return err
	}
	if !authenticated {
		return shared.ErrBidderNotAuthenticated
	}

	allowed, err := s.identities.CanBid(ctx, bidderID)
	if err != nil {
		return err
	}
	if !allowed {
		return shared.ErrBidderNotAllowed
	}

	if !l.AllowThirdParty {
		thirdParty, err := s.identities.IsThirdParty(ctx, bidderID)
		if err != nil {
			return err
		}
		if thirdParty {
			return shared.ErrThirdPartyNotAllowed
		}
	}
	return nil
}

// validateTerms checks everything that does not depend on other bids
func validateTerms(l *listing.Listing, terms bid.Terms, now time.Time) error {
	if !l.AcceptingBids() {
		return shared.ErrListingNotAccepting
	}
	if l.HasEnded(now) {
		return shared.ErrAuctionEnded
	}
	if !terms.Price.IsPositive() {
		return shared.ErrInvalidPrice
	}
	if !terms.Volume.IsPositive() {
		return shared.ErrInvalidVolume
	}
	if terms.Price.LessThan(l.StartingPrice) {
		return shared.ErrPriceBelowStarting
	}
	if !terms.VolumeKind.Valid() {
		return shared.ErrInvalidVolumeKind
	}
	if l.MinOrderQuantity != nil && terms.Volume.LessThan(*l.MinOrderQuantity) {
		return shared.ErrVolumeBelowMinimum
	}
	if terms.Volume.GreaterThan(l.AvailableQuantity) {
		return shared.ErrVolumeAboveAvailable
	}
	if terms.VolumeKind == bid.VolumeFull && !terms.Volume.Equal(l.AvailableQuantity) {
		return shared.ErrFullVolumeMismatch
	}
	if terms.MaxAutoBidPrice != nil && terms.MaxAutoBidPrice.LessThan(terms.Price) {
		return shared.ErrCeilingBelowPrice
	}
	return nil
}

// Cancel withdraws a live bid owned by bidderID
func (s *BidService) Cancel(ctx context.Context, bidID, bidderID uuid.UUID) (*bid.Bid, error) {
	existing, l, err := s.lookup(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if existing.BidderID != bidderID {
		return nil, shared.ErrBidNotFound
	}

	var out *outcome
	err = s.run(ctx, l.ID, func(ctx context.Context, repos outbound.Repositories) error {
		now := s.now()
		live, err := repos.Bids().ListLive(ctx, l.ID)
		if err != nil {
			return err
		}
		target := findByID(live, bidID)
		if target == nil || target.BidderID != bidderID {
			return shared.ErrBidNotFound
		}
		if l.HasEnded(now) {
			return shared.ErrAuctionEnded
		}
		closure, err := repos.Closures().Get(ctx, l.ID)
		if err != nil {
			return err
		}
		if closure != nil {
			return shared.ErrAuctionAlreadyClosed
		}

		changes := newChangeSet(now)
		changes.touch(target, ledger.ReasonCancelled, "")
		if err := target.SetStatus(bid.StatusCancelled, now); err != nil {
			return err
		}
		demoted, err := changes.rank(live)
		if err != nil {
			return err
		}

		entries, err := changes.commit(ctx, repos)
		if err != nil {
			return err
		}
		out = &outcome{bid: target.Clone(), demoted: cloneAll(demoted), entries: entries}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("bid_id", bidID.String()).Msg("Failed to cancel bid")
		return nil, err
	}

	s.logger.Info().Str("bid_id", bidID.String()).Str("listing_id", l.ID.String()).Msg("Bid cancelled")
	s.cascade(ctx, l, out.demoted)
	return out.bid, nil
}

// AdminOverride applies an administrator decision to a live bid
func (s *BidService) AdminOverride(ctx context.Context, bidID uuid.UUID, action inbound.AdminAction) (*bid.Bid, error) {
	switch action {
	case inbound.AdminApprove, inbound.AdminReject, inbound.AdminMarkWon:
	default:
		return nil, shared.ErrInvalidAdminAction
	}

	_, l, err := s.lookup(ctx, bidID)
	if err != nil {
		return nil, err
	}

	var (
		out     *outcome
		settled []*bid.Bid
		closure *shared.AuctionCloseResult
	)
	err = s.run(ctx, l.ID, func(ctx context.Context, repos outbound.Repositories) error {
		now := s.now()
		live, err := repos.Bids().ListLive(ctx, l.ID)
		if err != nil {
			return err
		}
		target := findByID(live, bidID)
		if target == nil {
			return shared.ErrBidNotFound
		}

		changes := newChangeSet(now)
		changes.record(target, ledger.ReasonAdminOverride, string(action))

		var demoted []*bid.Bid
		switch action {
		case inbound.AdminApprove:
			if err := target.SetStatus(bid.StatusActive, now); err != nil {
				return err
			}
			if demoted, err = changes.rank(live); err != nil {
				return err
			}
		case inbound.AdminReject:
			if err := target.SetStatus(bid.StatusCancelled, now); err != nil {
				return err
			}
			if demoted, err = changes.rank(live); err != nil {
				return err
			}
		case inbound.AdminMarkWon:
			existing, err := repos.Closures().Get(ctx, l.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				return shared.ErrAuctionAlreadyClosed
			}
			if err := target.SetStatus(bid.StatusWon, now); err != nil {
				return err
			}
			for _, b := range live {
				if b.ID == target.ID {
					continue
				}
				changes.touch(b, ledger.ReasonAdminOverride, string(action))
				if err := b.SetStatus(bid.StatusLost, now); err != nil {
					return err
				}
			}
			winningBidID, winnerID, price := target.ID, target.BidderID, target.Price
			closure = &shared.AuctionCloseResult{
				ListingID:    l.ID,
				Outcome:      shared.OutcomeAdminAwarded,
				WinningBidID: &winningBidID,
				WinnerID:     &winnerID,
				FinalPrice:   &price,
				ClosedAt:     now,
			}
			if err := repos.Closures().Create(ctx, closure); err != nil {
				return err
			}
			settled = cloneAll(live)
		}

		entries, err := changes.commit(ctx, repos)
		if err != nil {
			return err
		}
		out = &outcome{bid: target.Clone(), demoted: cloneAll(demoted), entries: entries}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("bid_id", bidID.String()).Str("action", string(action)).Msg("Admin override failed")
		return nil, err
	}

	s.logger.Info().
		Str("bid_id", bidID.String()).
		Str("listing_id", l.ID.String()).
		Str("action", string(action)).
		Str("status", string(out.bid.Status)).
		Msg("Admin override applied")

	if closure != nil {
		publishSettlement(ctx, s.events, l, settled, closure)
		return out.bid, nil
	}
	for _, d := range out.demoted {
		s.events.Publish(ctx, bidEvent(outbound.EventTypeBidOutbid, d, l, s.now()))
	}
	s.cascade(ctx, l, out.demoted)
	return out.bid, nil
}

// MarkPaid records payment of a won bid
func (s *BidService) MarkPaid(ctx context.Context, bidID uuid.UUID) (*bid.Bid, error) {
	_, l, err := s.lookup(ctx, bidID)
	if err != nil {
		return nil, err
	}

	var paid *bid.Bid
	err = s.run(ctx, l.ID, func(ctx context.Context, repos outbound.Repositories) error {
		target, err := repos.Bids().GetByID(ctx, bidID)
		if err != nil {
			return err
		}
		if target.Status != bid.StatusWon {
			return shared.ErrBidNotWon
		}

		changes := newChangeSet(s.now())
		changes.touch(target, ledger.ReasonPaid, "")
		if err := target.SetStatus(bid.StatusPaid, changes.now); err != nil {
			return err
		}
		if _, err := changes.commit(ctx, repos); err != nil {
			return err
		}
		paid = target.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("bid_id", bidID.String()).Msg("Bid marked paid")
	return paid, nil
}

// GetBid retrieves a bid by ID
func (s *BidService) GetBid(ctx context.Context, bidID uuid.UUID) (*bid.Bid, error) {
	return s.store.Bids().GetByID(ctx, bidID)
}

// ListBids retrieves bids ordered by price desc, then creation time
func (s *BidService) ListBids(ctx context.Context, req inbound.ListBidsRequest) ([]*bid.Bid, error) {
	return s.store.Bids().List(ctx, outbound.BidFilter{
		ListingID: req.ListingID,
		BidderID:  req.BidderID,
		Statuses:  req.Statuses,
		Limit:     req.Limit,
	})
}

// WinningBid returns the currently winning bid of a listing, nil if none
func (s *BidService) WinningBid(ctx context.Context, listingID uuid.UUID) (*bid.Bid, error) {
	live, err := s.store.Bids().ListLive(ctx, listingID)
	if err != nil {
		return nil, err
	}
	for _, b := range live {
		if b.Status == bid.StatusWinning {
			return b, nil
		}
	}
	return nil, nil
}

// History replays the ledger of a bid
func (s *BidService) History(ctx context.Context, bidID uuid.UUID) ([]ledger.Entry, error) {
	if _, err := s.store.Bids().GetByID(ctx, bidID); err != nil {
		return nil, err
	}
	return s.store.Ledger().ListByBid(ctx, bidID)
}

// Stats summarizes bidding on a listing
func (s *BidService) Stats(ctx context.Context, listingID uuid.UUID) (*shared.BidStats, error) {
	return s.store.Bids().Stats(ctx, listingID)
}

func (s *BidService) lookup(ctx context.Context, bidID uuid.UUID) (*bid.Bid, *listing.Listing, error) {
	existing, err := s.store.Bids().GetByID(ctx, bidID)
	if err != nil {
		return nil, nil, err
	}
	l, err := s.listings.GetListing(ctx, existing.ListingID)
	if err != nil {
		return nil, nil, err
	}
	return existing, l, nil
}

func (s *BidService) publishOutcome(ctx context.Context, l *listing.Listing, out *outcome) {
	now := s.now()
	s.events.Publish(ctx, bidEvent(outbound.EventTypeBidPlaced, out.bid, l, now))
	for _, d := range out.demoted {
		s.events.Publish(ctx, bidEvent(outbound.EventTypeBidOutbid, d, l, now))
	}
}

func (s *BidService) scheduleClosing(ctx context.Context, l *listing.Listing) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.ScheduleClosing(ctx, l.ID, l.EndTime); err != nil {
		s.logger.Error().Err(err).Str("listing_id", l.ID.String()).Msg("Failed to schedule listing closing")
	}
}
