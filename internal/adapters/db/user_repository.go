package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// UserRepository answers bidder eligibility questions from the users table.
// It implements outbound.IdentityProvider; unknown users are neither
// authenticated nor allowed to bid.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new user repository
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

type userFlags struct {
	active     bool
	canBid     bool
	thirdParty bool
}

func (r *UserRepository) flags(ctx context.Context, id uuid.UUID) (*userFlags, error) {
	query := `
		SELECT is_active, can_place_bids, is_third_party
		FROM users
		WHERE id = $1
	`

	var f userFlags
	err := r.conn.GetDB().QueryRowContext(ctx, query, id).Scan(&f.active, &f.canBid, &f.thirdParty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &f, nil
}

func (r *UserRepository) IsAuthenticated(ctx context.Context, userID uuid.UUID) (bool, error) {
	f, err := r.flags(ctx, userID)
	if err != nil || f == nil {
		return false, err
	}
	return f.active, nil
}

func (r *UserRepository) CanBid(ctx context.Context, userID uuid.UUID) (bool, error) {
	f, err := r.flags(ctx, userID)
	if err != nil || f == nil {
		return false, err
	}
	return f.canBid, nil
}

func (r *UserRepository) IsThirdParty(ctx context.Context, userID uuid.UUID) (bool, error) {
	f, err := r.flags(ctx, userID)
	if err != nil || f == nil {
		return false, err
	}
	return f.thirdParty, nil
}
