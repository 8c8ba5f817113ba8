package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles usage_records PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new usage Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const usageColumns = `user_id, daily_count, daily_window_key, monthly_count,
		        monthly_window_key, purchased_credits, last_used_at, updated_at`

// GetOrCreate returns the user's usage record, creating a zero record if it
// doesn't exist. It never reports "not found".
func (r *Repository) GetOrCreate(ctx context.Context, userID string) (*UsageRecord, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO usage_records (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, fmt.Errorf("ensuring usage record: %w", err)
	}

	var rec UsageRecord
	err = r.pool.QueryRow(ctx,
		`SELECT `+usageColumns+` FROM usage_records WHERE user_id = $1`, userID,
	).Scan(&rec.UserID, &rec.DailyCount, &rec.DailyWindowKey, &rec.MonthlyCount,
		&rec.MonthlyWindowKey, &rec.PurchasedCredits, &rec.LastUsedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("fetching usage record: %w", err)
	}
	return &rec, nil
}

// Increment counts one completed turn in a single atomic statement: each
// counter either advances within its current window or restarts at 1 when
// the stamped window key is stale. Concurrent increments for the same user
// serialize on the row, so no update is ever lost. purchased_credits is
// untouched.
func (r *Repository) Increment(ctx context.Context, userID string, now time.Time) (*UsageRecord, error) {
	dayKey := DayKey(now)
	monthKey := MonthKey(now)

	var rec UsageRecord
	err := r.pool.QueryRow(ctx,
		`INSERT INTO usage_records (user_id, daily_count, daily_window_key,
		                            monthly_count, monthly_window_key, last_used_at)
		 VALUES ($1, 1, $2, 1, $3, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
		     daily_count = CASE WHEN usage_records.daily_window_key = $2
		                        THEN usage_records.daily_count + 1 ELSE 1 END,
		     daily_window_key = $2,
		     monthly_count = CASE WHEN usage_records.monthly_window_key = $3
		                          THEN usage_records.monthly_count + 1 ELSE 1 END,
		     monthly_window_key = $3,
		     last_used_at = NOW(),
		     updated_at = NOW()
		 RETURNING `+usageColumns,
		userID, dayKey, monthKey,
	).Scan(&rec.UserID, &rec.DailyCount, &rec.DailyWindowKey, &rec.MonthlyCount,
		&rec.MonthlyWindowKey, &rec.PurchasedCredits, &rec.LastUsedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("incrementing usage: %w", err)
	}
	return &rec, nil
}

// AddCredits additively raises the purchased-credit ceiling. The operation
// is a pure increment; retry deduplication belongs to the payment layer
// that calls it.
func (r *Repository) AddCredits(ctx context.Context, userID string, credits int) error {
	if credits <= 0 {
		return fmt.Errorf("credits must be positive, got %d", credits)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO usage_records (user_id, purchased_credits)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET
		     purchased_credits = usage_records.purchased_credits + $2,
		     updated_at = NOW()`,
		userID, credits)
	if err != nil {
		return fmt.Errorf("adding credits: %w", err)
	}
	return nil
}
