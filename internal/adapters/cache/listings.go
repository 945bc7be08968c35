// Package cache keeps recently read listing snapshots in memory.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/listing"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
)

type cachedListing struct {
	listing   listing.Listing
	timestamp time.Time
}

// Listings wraps a ListingProvider with a size-bounded cache whose entries
// expire after ttl. Expired-listing queries always go to the source.
type Listings struct {
	source outbound.ListingProvider
	cache  *lru.Cache
	ttl    time.Duration
	now    func() time.Time
}

type ListingsParams struct {
	Source outbound.ListingProvider
	Size   int
	TTL    time.Duration
	Now    func() time.Time
}

func NewListings(params ListingsParams) (*Listings, error) {
	cache, err := lru.New(params.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing cache: %w", err)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Listings{source: params.Source, cache: cache, ttl: params.TTL, now: now}, nil
}

func (c *Listings) GetListing(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	if cached, ok := c.cache.Get(id); ok {
		if entry, ok := cached.(cachedListing); ok && c.now().Sub(entry.timestamp) < c.ttl {
			l := entry.listing
			return &l, nil
		}
		c.cache.Remove(id)
	}

	l, err := c.source.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}

	c.cache.Add(id, cachedListing{listing: *l, timestamp: c.now()})
	return l, nil
}

func (c *Listings) ListExpired(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	return c.source.ListExpired(ctx, before, limit)
}

// Invalidate drops a listing so the next read goes to the source
func (c *Listings) Invalidate(id uuid.UUID) {
	c.cache.Remove(id)
}
