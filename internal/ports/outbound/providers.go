package outbound

import (
	"context"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/listing"

	"github.com/google/uuid"
)

//go:generate mockgen -source=providers.go -destination=mock/providers.go -package=mock

// ListingProvider reads listing snapshots from the catalog
type ListingProvider interface {
	// GetListing retrieves a listing by ID, shared.ErrListingNotFound if missing
	GetListing(ctx context.Context, id uuid.UUID) (*listing.Listing, error)

	// ListExpired returns active listings whose end time is before the given time
	ListExpired(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error)
}

// IdentityProvider answers questions about bidders
type IdentityProvider interface {
	IsAuthenticated(ctx context.Context, userID uuid.UUID) (bool, error)
	CanBid(ctx context.Context, userID uuid.UUID) (bool, error)
	IsThirdParty(ctx context.Context, userID uuid.UUID) (bool, error)
}

// ListingLocker serializes mutations per listing. Lock waits a bounded time
// and fails with shared.ErrListingBusy when it runs out.
type ListingLocker interface {
	Lock(ctx context.Context, listingID uuid.UUID) (func(), error)
}

// ClosingScheduler arranges for a listing to be closed at its end time
type ClosingScheduler interface {
	ScheduleClosing(ctx context.Context, listingID uuid.UUID, endTime time.Time) error
}
