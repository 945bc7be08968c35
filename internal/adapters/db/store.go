package db

import (
	"context"
	"database/sql"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"
)

// Store implements outbound.Store on PostgreSQL
type Store struct {
	conn *Connection
	repositories
}

// NewStore creates a store over conn
func NewStore(conn *Connection) *Store {
	return &Store{conn: conn, repositories: repositories{q: conn.GetDB()}}
}

// Do runs fn in one transaction. Everything fn writes through repos is
// committed together or not at all.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos outbound.Repositories) error) error {
	return s.conn.ExecuteTransaction(ctx, func(tx *sql.Tx) error {
		return fn(ctx, repositories{q: tx})
	})
}

// repositories binds every repository to the same querier
type repositories struct {
	q querier
}

func (r repositories) Bids() outbound.BidRepository         { return &BidRepository{q: r.q} }
func (r repositories) Ledger() outbound.LedgerRepository    { return &LedgerRepository{q: r.q} }
func (r repositories) Closures() outbound.ClosureRepository { return &ClosureRepository{q: r.q} }
