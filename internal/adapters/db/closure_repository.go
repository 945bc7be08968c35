package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const uniqueViolation = pq.ErrorCode("23505")

// ClosureRepository records how each listing was closed
type ClosureRepository struct {
	q querier
}

// Get returns the closure of a listing, or nil if it is still open
func (r *ClosureRepository) Get(ctx context.Context, listingID uuid.UUID) (*shared.AuctionCloseResult, error) {
	query := `
		SELECT listing_id, outcome, winning_bid_id, winner_id, final_price, closed_at
		FROM listing_closures
		WHERE listing_id = $1
	`

	var (
		result       shared.AuctionCloseResult
		winningBidID uuid.NullUUID
		winnerID     uuid.NullUUID
		finalPrice   decimal.NullDecimal
	)
	err := r.q.QueryRowContext(ctx, query, listingID).Scan(
		&result.ListingID,
		&result.Outcome,
		&winningBidID,
		&winnerID,
		&finalPrice,
		&result.ClosedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get listing closure: %w", err)
	}

	if winningBidID.Valid {
		result.WinningBidID = &winningBidID.UUID
	}
	if winnerID.Valid {
		result.WinnerID = &winnerID.UUID
	}
	if finalPrice.Valid {
		result.FinalPrice = &finalPrice.Decimal
	}
	return &result, nil
}

// Create stores a closure. A listing closes once; a second closure is
// reported as ErrAuctionAlreadyClosed.
func (r *ClosureRepository) Create(ctx context.Context, closure *shared.AuctionCloseResult) error {
	query := `
		INSERT INTO listing_closures (listing_id, outcome, winning_bid_id, winner_id, final_price, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query,
		closure.ListingID,
		closure.Outcome,
		nullUUID(closure.WinningBidID),
		nullUUID(closure.WinnerID),
		nullDecimal(closure.FinalPrice),
		closure.ClosedAt,
	)
	if err != nil {
		return mapClosureError(err)
	}
	return nil
}

func mapClosureError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return shared.ErrAuctionAlreadyClosed
	}
	return fmt.Errorf("failed to create listing closure: %w", err)
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
