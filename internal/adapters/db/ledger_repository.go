package db

import (
	"context"
	"fmt"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerRepository stores the append-only bid history
type LedgerRepository struct {
	q querier
}

func (r *LedgerRepository) Append(ctx context.Context, entries ...ledger.Entry) error {
	query := `
		INSERT INTO bid_ledger (id, bid_id, listing_id, bidder_id, previous_price, new_price,
			previous_volume, new_volume, previous_status, new_status, reason, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	for _, e := range entries {
		_, err := r.q.ExecContext(ctx, query,
			e.ID,
			e.BidID,
			e.ListingID,
			e.BidderID,
			nullDecimal(e.PreviousPrice),
			e.NewPrice,
			nullDecimal(e.PreviousVolume),
			e.NewVolume,
			e.PreviousStatus,
			e.NewStatus,
			e.Reason,
			e.Note,
			e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to append ledger entry for bid %s: %w", e.BidID, err)
		}
	}

	return nil
}

func (r *LedgerRepository) ListByBid(ctx context.Context, bidID uuid.UUID) ([]ledger.Entry, error) {
	return r.list(ctx, "bid_id", bidID)
}

func (r *LedgerRepository) ListByListing(ctx context.Context, listingID uuid.UUID) ([]ledger.Entry, error) {
	return r.list(ctx, "listing_id", listingID)
}

// list returns entries in append order. column is one of the two fixed
// names above, never user input.
func (r *LedgerRepository) list(ctx context.Context, column string, id uuid.UUID) ([]ledger.Entry, error) {
	query := `
		SELECT id, bid_id, listing_id, bidder_id, previous_price, new_price,
			previous_volume, new_volume, previous_status, new_status, reason, note, created_at
		FROM bid_ledger
		WHERE ` + column + ` = $1
		ORDER BY seq ASC
	`

	rows, err := r.q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var (
			e              ledger.Entry
			previousPrice  decimal.NullDecimal
			previousVolume decimal.NullDecimal
		)
		err := rows.Scan(
			&e.ID,
			&e.BidID,
			&e.ListingID,
			&e.BidderID,
			&previousPrice,
			&e.NewPrice,
			&previousVolume,
			&e.NewVolume,
			&e.PreviousStatus,
			&e.NewStatus,
			&e.Reason,
			&e.Note,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		if previousPrice.Valid {
			e.PreviousPrice = &previousPrice.Decimal
		}
		if previousVolume.Valid {
			e.PreviousVolume = &previousVolume.Decimal
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, nil
}
