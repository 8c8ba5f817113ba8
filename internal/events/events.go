package events

import (
	"time"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// StreamEvents holds all gateway usage events.
const StreamEvents = "VANTAG_EVENTS"

// Subject constants.
const (
	SubjectUsageEvent = "vantag.events.usage"
)

// Usage event types.
const (
	EventTurnCompleted  = "turn_completed"
	EventQuotaDenied    = "quota_denied"
	EventCreditsGranted = "credits_granted"
	EventPromoGranted   = "promo_granted"
)

// UsageEvent is published for every countable interaction with the
// assistant. A durable consumer persists these for the audit trail.
type UsageEvent struct {
	UserID    string    `json:"user_id"`
	EventType string    `json:"event_type"`
	Tier      string    `json:"tier"`
	Locale    string    `json:"locale"`
	Remaining int       `json:"remaining"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
