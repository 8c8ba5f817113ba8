package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher publishes usage events to NATS JetStream. A nil Publisher is
// valid and drops everything, so event publishing can be switched off by
// simply not configuring NATS.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishUsage publishes a usage event. Failures are logged, never returned:
// the audit trail must not affect the request path.
func (p *Publisher) PublishUsage(ctx context.Context, event UsageEvent) {
	if p == nil {
		return
	}
	if err := p.publish(ctx, SubjectUsageEvent, event); err != nil {
		slog.Warn("publishing usage event", "error", err, "event_type", event.EventType)
	}
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	_, err = p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
