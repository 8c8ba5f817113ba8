package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry matches the chat_audit table schema.
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	UserID    string          `json:"user_id"`
	EventType string          `json:"event_type"`
	Tier      string          `json:"tier"`
	Locale    string          `json:"locale"`
	Remaining int             `json:"remaining"`
	Details   json.RawMessage `json:"details"`
	CreatedAt time.Time       `json:"created_at"`
}
