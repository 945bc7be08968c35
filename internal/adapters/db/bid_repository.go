package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const bidColumns = `id, listing_id, bidder_id, price, volume, volume_kind, total_value, status,
	max_auto_bid_price, is_auto_bid, note, submitted_at, created_at, updated_at`

var liveStatuses = pq.Array([]string{
	string(bid.StatusActive),
	string(bid.StatusWinning),
	string(bid.StatusOutbid),
})

// BidRepository implements the bid repository interface
type BidRepository struct {
	q querier
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBid(row scanner) (*bid.Bid, error) {
	var (
		b       bid.Bid
		ceiling decimal.NullDecimal
	)
	err := row.Scan(
		&b.ID,
		&b.ListingID,
		&b.BidderID,
		&b.Price,
		&b.Volume,
		&b.VolumeKind,
		&b.TotalValue,
		&b.Status,
		&ceiling,
		&b.IsAutoBid,
		&b.Note,
		&b.SubmittedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if ceiling.Valid {
		b.MaxAutoBidPrice = &ceiling.Decimal
	}
	return &b, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func (r *BidRepository) Create(ctx context.Context, b *bid.Bid) error {
	query := `
		INSERT INTO bids (` + bidColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.q.ExecContext(ctx, query,
		b.ID,
		b.ListingID,
		b.BidderID,
		b.Price,
		b.Volume,
		b.VolumeKind,
		b.TotalValue,
		b.Status,
		nullDecimal(b.MaxAutoBidPrice),
		b.IsAutoBid,
		b.Note,
		b.SubmittedAt,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bid: %w", err)
	}

	return nil
}

func (r *BidRepository) GetByID(ctx context.Context, id uuid.UUID) (*bid.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = $1`

	b, err := scanBid(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrBidNotFound
		}
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}

	return b, nil
}

// Update writes the mutable fields of a bid
func (r *BidRepository) Update(ctx context.Context, b *bid.Bid) error {
	query := `
		UPDATE bids
		SET price = $2, volume = $3, volume_kind = $4, total_value = $5, status = $6,
			max_auto_bid_price = $7, is_auto_bid = $8, note = $9, submitted_at = $10, updated_at = $11
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query,
		b.ID,
		b.Price,
		b.Volume,
		b.VolumeKind,
		b.TotalValue,
		b.Status,
		nullDecimal(b.MaxAutoBidPrice),
		b.IsAutoBid,
		b.Note,
		b.SubmittedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update bid: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return shared.ErrBidNotFound
	}

	return nil
}

// ListLive returns the non-terminal bids of a listing in ranking order
func (r *BidRepository) ListLive(ctx context.Context, listingID uuid.UUID) ([]*bid.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE listing_id = $1 AND status = ANY($2)
		ORDER BY price DESC, submitted_at ASC, id ASC
	`

	rows, err := r.q.QueryContext(ctx, query, listingID, liveStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to get live bids: %w", err)
	}
	return collectBids(rows)
}

func (r *BidRepository) List(ctx context.Context, filter outbound.BidFilter) ([]*bid.Bid, error) {
	query, args := listQuery(filter)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	return collectBids(rows)
}

// listQuery builds the filtered listing query with positional arguments
func listQuery(filter outbound.BidFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if filter.ListingID != nil {
		args = append(args, *filter.ListingID)
		where = append(where, fmt.Sprintf("listing_id = $%d", len(args)))
	}
	if filter.BidderID != nil {
		args = append(args, *filter.BidderID)
		where = append(where, fmt.Sprintf("bidder_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + bidColumns + " FROM bids")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY price DESC, created_at ASC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	return sb.String(), args
}

func collectBids(rows *sql.Rows) ([]*bid.Bid, error) {
	defer rows.Close()

	var bids []*bid.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return bids, nil
}

// Stats counts every bid ever placed on the listing. The highest price
// ignores cancelled bids.
func (r *BidRepository) Stats(ctx context.Context, listingID uuid.UUID) (*shared.BidStats, error) {
	query := `
		SELECT COUNT(*),
			COUNT(DISTINCT bidder_id),
			MAX(price) FILTER (WHERE status <> $2)
		FROM bids
		WHERE listing_id = $1
	`

	stats := &shared.BidStats{ListingID: listingID}
	var highest decimal.NullDecimal
	err := r.q.QueryRowContext(ctx, query, listingID, bid.StatusCancelled).Scan(
		&stats.BidCount,
		&stats.UniqueBidders,
		&highest,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get bid stats: %w", err)
	}
	if highest.Valid {
		stats.HighestPrice = &highest.Decimal
	}

	return stats, nil
}
