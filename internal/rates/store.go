package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ratesKey is where the compiled document lives in Redis. The document is
// small and rewritten wholesale on every refresh, so it has no TTL: a stale
// snapshot beats no snapshot when every upstream is down.
const ratesKey = "app_data:exchange_rates"

// Store persists the rates document in Redis.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Save(ctx context.Context, doc *Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling rates document: %w", err)
	}
	if err := s.client.Set(ctx, ratesKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("storing rates document: %w", err)
	}
	return nil
}

// Get returns the stored document, or (nil, nil) when no refresh has
// completed yet.
func (s *Store) Get(ctx context.Context) (*Document, error) {
	payload, err := s.client.Get(ctx, ratesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching rates document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decoding rates document: %w", err)
	}
	return &doc, nil
}
