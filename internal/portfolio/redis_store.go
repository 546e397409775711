package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the portfolio as one JSON document under a single key
type RedisStore struct {
	client redis.Cmdable
	key    string
}

// NewRedisStore creates a RedisStore. The document lives at prefix::key.
func NewRedisStore(client redis.Cmdable, prefix, key string) *RedisStore {
	return &RedisStore{client: client, key: prefix + "::" + key}
}

// Load reads the document. A missing key is an empty portfolio.
func (s *RedisStore) Load(ctx context.Context) (State, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}.clone(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to get portfolio: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("failed to decode portfolio: %w", err)
	}
	return state.clone(), nil
}

// Save overwrites the document
func (s *RedisStore) Save(ctx context.Context, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode portfolio: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set portfolio: %w", err)
	}
	return nil
}
