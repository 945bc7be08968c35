package db

import (
	"context"
	"fmt"
)

// schema creates the tables owned by the bidding core. listings and users
// belong to the marketplace and are only read; they are created here so a
// fresh database is usable on its own.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		can_place_bids BOOLEAN NOT NULL DEFAULT TRUE,
		is_third_party BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS listings (
		id UUID PRIMARY KEY,
		seller_id UUID NOT NULL REFERENCES users(id),
		status TEXT NOT NULL,
		is_complete BOOLEAN NOT NULL DEFAULT FALSE,
		starting_price NUMERIC(18, 4) NOT NULL,
		reserve_price NUMERIC(18, 4),
		available_quantity NUMERIC(18, 4) NOT NULL,
		min_order_quantity NUMERIC(18, 4),
		currency TEXT NOT NULL,
		unit TEXT NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		allow_third_party BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS listings_status_end_time_idx ON listings (status, end_time)`,
	`CREATE TABLE IF NOT EXISTS bids (
		id UUID PRIMARY KEY,
		listing_id UUID NOT NULL REFERENCES listings(id),
		bidder_id UUID NOT NULL REFERENCES users(id),
		price NUMERIC(18, 4) NOT NULL CHECK (price > 0),
		volume NUMERIC(18, 4) NOT NULL CHECK (volume > 0),
		volume_kind TEXT NOT NULL,
		total_value NUMERIC(24, 8) NOT NULL,
		status TEXT NOT NULL,
		max_auto_bid_price NUMERIC(18, 4),
		is_auto_bid BOOLEAN NOT NULL DEFAULT FALSE,
		note TEXT NOT NULL DEFAULT '',
		submitted_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS bids_listing_status_idx ON bids (listing_id, status)`,
	`CREATE INDEX IF NOT EXISTS bids_bidder_idx ON bids (bidder_id)`,
	// one live bid per bidder and listing
	`CREATE UNIQUE INDEX IF NOT EXISTS bids_live_bidder_idx ON bids (listing_id, bidder_id)
		WHERE status IN ('active', 'winning', 'outbid')`,
	`CREATE TABLE IF NOT EXISTS bid_ledger (
		seq BIGSERIAL PRIMARY KEY,
		id UUID NOT NULL UNIQUE,
		bid_id UUID NOT NULL REFERENCES bids(id),
		listing_id UUID NOT NULL,
		bidder_id UUID NOT NULL,
		previous_price NUMERIC(18, 4),
		new_price NUMERIC(18, 4) NOT NULL,
		previous_volume NUMERIC(18, 4),
		new_volume NUMERIC(18, 4) NOT NULL,
		previous_status TEXT NOT NULL DEFAULT '',
		new_status TEXT NOT NULL,
		reason TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS bid_ledger_bid_idx ON bid_ledger (bid_id, seq)`,
	`CREATE INDEX IF NOT EXISTS bid_ledger_listing_idx ON bid_ledger (listing_id, seq)`,
	`CREATE TABLE IF NOT EXISTS listing_closures (
		listing_id UUID PRIMARY KEY REFERENCES listings(id),
		outcome TEXT NOT NULL,
		winning_bid_id UUID REFERENCES bids(id),
		winner_id UUID,
		final_price NUMERIC(18, 4),
		closed_at TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates missing tables and indexes
func EnsureSchema(ctx context.Context, conn *Connection) error {
	for i, stmt := range schema {
		if _, err := conn.GetDB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
