package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/listing"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"

	"github.com/google/uuid"
)

// Listings is an in-memory listing catalog
type Listings struct {
	mu       sync.RWMutex
	listings map[uuid.UUID]listing.Listing
	closures *Store
}

// NewListings creates a catalog holding the given listings
func NewListings(listings ...*listing.Listing) *Listings {
	catalog := &Listings{listings: make(map[uuid.UUID]listing.Listing)}
	for _, l := range listings {
		catalog.Put(l)
	}
	return catalog
}

// Put adds or replaces a listing
func (c *Listings) Put(l *listing.Listing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings[l.ID] = *l
}

// TrackClosures makes ListExpired skip listings that already have a closure
// record in store.
func (c *Listings) TrackClosures(store *Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closures = store
}

func (c *Listings) GetListing(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.listings[id]
	if !ok {
		return nil, shared.ErrListingNotFound
	}
	return &l, nil
}

func (c *Listings) ListExpired(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	c.mu.RLock()
	var expired []listing.Listing
	for _, l := range c.listings {
		if l.Status != listing.StatusActive || !l.EndTime.Before(before) {
			continue
		}
		if c.closures != nil && c.closures.IsClosed(l.ID) {
			continue
		}
		expired = append(expired, l)
	}
	c.mu.RUnlock()

	sort.Slice(expired, func(i, j int) bool { return expired[i].EndTime.Before(expired[j].EndTime) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}

	ids := make([]uuid.UUID, 0, len(expired))
	for _, l := range expired {
		ids = append(ids, l.ID)
	}
	return ids, nil
}
