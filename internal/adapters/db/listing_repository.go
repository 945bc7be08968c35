package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/listing"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListingRepository reads listing snapshots from the marketplace tables.
// It implements outbound.ListingProvider.
type ListingRepository struct {
	conn *Connection
}

// NewListingRepository creates a new listing repository
func NewListingRepository(conn *Connection) *ListingRepository {
	return &ListingRepository{conn: conn}
}

func (r *ListingRepository) GetListing(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	query := `
		SELECT id, seller_id, status, is_complete, starting_price, reserve_price,
			available_quantity, min_order_quantity, currency, unit, end_time, allow_third_party
		FROM listings
		WHERE id = $1
	`

	var (
		l           listing.Listing
		reserve     decimal.NullDecimal
		minQuantity decimal.NullDecimal
	)
	err := r.conn.GetDB().QueryRowContext(ctx, query, id).Scan(
		&l.ID,
		&l.SellerID,
		&l.Status,
		&l.Complete,
		&l.StartingPrice,
		&reserve,
		&l.AvailableQuantity,
		&minQuantity,
		&l.Currency,
		&l.Unit,
		&l.EndTime,
		&l.AllowThirdParty,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	if reserve.Valid {
		l.ReservePrice = &reserve.Decimal
	}
	if minQuantity.Valid {
		l.MinOrderQuantity = &minQuantity.Decimal
	}
	return &l, nil
}

// ListExpired returns active listings that ended before the given time and
// have no closure yet, oldest first.
func (r *ListingRepository) ListExpired(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT l.id
		FROM listings l
		WHERE l.status = $1
			AND l.end_time < $2
			AND NOT EXISTS (SELECT 1 FROM listing_closures c WHERE c.listing_id = l.id)
		ORDER BY l.end_time ASC
		LIMIT $3
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, listing.StatusActive, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired listings: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan listing id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired listings: %w", err)
	}

	return ids, nil
}
