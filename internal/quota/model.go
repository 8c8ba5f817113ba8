package quota

import (
	"time"
)

// UsageRecord matches the usage_records table schema. Counters are only
// meaningful together with their window key: a stale key means the counter
// belongs to a past window and reads as zero until the next increment
// overwrites it.
type UsageRecord struct {
	UserID           string     `json:"user_id"`
	DailyCount       int        `json:"daily_count"`
	DailyWindowKey   string     `json:"daily_window_key"`
	MonthlyCount     int        `json:"monthly_count"`
	MonthlyWindowKey string     `json:"monthly_window_key"`
	PurchasedCredits int        `json:"purchased_credits"`
	LastUsedAt       *time.Time `json:"last_used_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Tier is a user's subscription level. Anything unrecognized degrades to
// TierFree, never to an unlimited policy.
type Tier string

const (
	TierFree     Tier = "free"
	TierPro      Tier = "pro"
	TierLifetime Tier = "lifetime"
)

// ParseTier resolves the subscription fields the mobile client sends.
// A recognized subscriptionType wins; an empty one with the legacy
// isPremium flag set maps to pro.
func ParseTier(subscriptionType string, isPremium bool) Tier {
	switch Tier(subscriptionType) {
	case TierFree, TierPro, TierLifetime:
		return Tier(subscriptionType)
	}
	if subscriptionType == "" && isPremium {
		return TierPro
	}
	return TierFree
}

// LimitType names the quota window that applies to a decision.
type LimitType string

const (
	LimitDaily   LimitType = "daily"
	LimitMonthly LimitType = "monthly"
)

// Decision is the outcome of evaluating a usage record against a tier
// policy. It is computed, never persisted.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remainingQuota"`
	ResetAt   time.Time `json:"resetDate"`
	LimitType LimitType `json:"limitType"`
}

// ExceededError is returned when a request runs past the user's quota.
type ExceededError struct {
	ResetAt   time.Time
	LimitType LimitType
}

func (e *ExceededError) Error() string {
	return "quota exceeded: " + string(e.LimitType) + " limit reached"
}
