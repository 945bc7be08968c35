package app

import (
	"context"
	"fmt"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/ledger"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/ranking"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/google/uuid"
)

// section runs a function under the listing lock and inside one unit of work.
type section struct {
	locker outbound.ListingLocker
	store  outbound.Store
}

func (s section) run(ctx context.Context, listingID uuid.UUID, fn func(ctx context.Context, repos outbound.Repositories) error) error {
	unlock, err := s.locker.Lock(ctx, listingID)
	if err != nil {
		return err
	}
	defer unlock()

	return s.store.Do(ctx, fn)
}

// changeSet tracks the bids an operation touches so each of them gets
// exactly one ledger entry, whatever number of times it changed.
type changeSet struct {
	now     time.Time
	order   []uuid.UUID
	before  map[uuid.UUID]*bid.Bid
	after   map[uuid.UUID]*bid.Bid
	reasons map[uuid.UUID]ledger.Reason
	notes   map[uuid.UUID]string
	forced  map[uuid.UUID]bool
}

func newChangeSet(now time.Time) *changeSet {
	return &changeSet{
		now:     now,
		before:  make(map[uuid.UUID]*bid.Bid),
		after:   make(map[uuid.UUID]*bid.Bid),
		reasons: make(map[uuid.UUID]ledger.Reason),
		notes:   make(map[uuid.UUID]string),
		forced:  make(map[uuid.UUID]bool),
	}
}

// touch snapshots b before it is modified. The first reason recorded for a
// bid is the one written to the ledger.
func (c *changeSet) touch(b *bid.Bid, reason ledger.Reason, note string) {
	if _, seen := c.after[b.ID]; seen {
		return
	}
	c.order = append(c.order, b.ID)
	c.before[b.ID] = b.Clone()
	c.after[b.ID] = b
	c.reasons[b.ID] = reason
	c.notes[b.ID] = note
}

// record is touch for decisions that are logged even when the bid ends up
// where it started, like an approve that re-ranks it back to winning.
func (c *changeSet) record(b *bid.Bid, reason ledger.Reason, note string) {
	c.touch(b, reason, note)
	c.forced[b.ID] = true
}

// add records a bid created by the operation
func (c *changeSet) add(b *bid.Bid, reason ledger.Reason, note string) {
	c.order = append(c.order, b.ID)
	c.before[b.ID] = nil
	c.after[b.ID] = b
	c.reasons[b.ID] = reason
	c.notes[b.ID] = note
}

// rank re-ranks the live bids and returns those that lost the winning spot
func (c *changeSet) rank(live []*bid.Bid) ([]*bid.Bid, error) {
	var err error
	demoted := ranking.Rank(live).Apply(func(change ranking.Change) {
		c.touch(change.Bid, ledger.ReasonReranked, "")
		if setErr := change.Bid.SetStatus(change.To, c.now); setErr != nil && err == nil {
			err = setErr
		}
	})
	if err != nil {
		return nil, err
	}
	return demoted, nil
}

// commit persists every changed bid and its ledger entry
func (c *changeSet) commit(ctx context.Context, repos outbound.Repositories) ([]ledger.Entry, error) {
	entries := make([]ledger.Entry, 0, len(c.order))
	for _, id := range c.order {
		before, after := c.before[id], c.after[id]
		if !c.forced[id] && !ledger.Changed(before, after) {
			continue
		}

		if before == nil {
			if err := repos.Bids().Create(ctx, after); err != nil {
				return nil, fmt.Errorf("failed to create bid: %w", err)
			}
		} else if err := repos.Bids().Update(ctx, after); err != nil {
			return nil, fmt.Errorf("failed to update bid: %w", err)
		}

		entries = append(entries, ledger.NewEntry(before, after, c.reasons[id], c.notes[id], c.now))
	}

	if len(entries) == 0 {
		return entries, nil
	}
	if err := repos.Ledger().Append(ctx, entries...); err != nil {
		return nil, fmt.Errorf("failed to append ledger entries: %w", err)
	}
	return entries, nil
}

func findByID(bids []*bid.Bid, id uuid.UUID) *bid.Bid {
	for _, b := range bids {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func findByBidder(bids []*bid.Bid, bidderID uuid.UUID) *bid.Bid {
	for _, b := range bids {
		if b.BidderID == bidderID {
			return b
		}
	}
	return nil
}

func cloneAll(bids []*bid.Bid) []*bid.Bid {
	clones := make([]*bid.Bid, 0, len(bids))
	for _, b := range bids {
		clones = append(clones, b.Clone())
	}
	return clones
}
