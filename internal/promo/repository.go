package promo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles promo_users PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Grant records a promotional entitlement. Granting again overwrites the
// grant type and keeps the original granted_at, so re-running a promo batch
// is harmless.
func (r *Repository) Grant(ctx context.Context, uid, email, grantType string) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx,
		`INSERT INTO promo_users (uid, email, grant_type)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (uid) DO UPDATE SET
		     email = EXCLUDED.email,
		     grant_type = EXCLUDED.grant_type,
		     updated_at = NOW()
		 RETURNING uid, email, grant_type, granted_at`,
		uid, email, grantType,
	).Scan(&u.UID, &u.Email, &u.GrantType, &u.GrantedAt)
	if err != nil {
		return nil, fmt.Errorf("granting promo: %w", err)
	}
	return &u, nil
}

// Get returns the promo entitlement for a user, or (nil, nil) when the
// user has none.
func (r *Repository) Get(ctx context.Context, uid string) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx,
		`SELECT uid, email, grant_type, granted_at FROM promo_users WHERE uid = $1`, uid,
	).Scan(&u.UID, &u.Email, &u.GrantType, &u.GrantedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching promo user: %w", err)
	}
	return &u, nil
}
