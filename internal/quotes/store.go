package quotes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by a Store when the key is absent
var ErrCacheMiss = errors.New("quote cache miss")

// Store persists encoded quote batches by key
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// maxMemoryEntries caps a MemoryStore. Keys are asset id sets, so a busy
// portfolio that keeps changing would otherwise grow the map forever.
const maxMemoryEntries = 256

type memoryEntry struct {
	value    []byte
	storedAt time.Time
}

// MemoryStore keeps entries in process memory. Entries expire after the
// retention, mirroring RedisStore, and the oldest are evicted once the
// store is full.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	retention  time.Duration
	maxEntries int
	now        func() time.Time
}

// NewMemoryStore creates an empty in-memory store. A zero retention keeps
// entries until they are evicted.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		retention:  retention,
		maxEntries: maxMemoryEntries,
		now:        time.Now,
	}
}

// Get returns the value for key or ErrCacheMiss
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || s.expired(e, s.now()) {
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

// Set stores value under key
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.entries[key] = memoryEntry{value: value, storedAt: now}

	if len(s.entries) > s.maxEntries {
		s.prune(now)
	}
	return nil
}

func (s *MemoryStore) expired(e memoryEntry, now time.Time) bool {
	return s.retention > 0 && now.Sub(e.storedAt) >= s.retention
}

// prune drops expired entries, then the oldest ones until the store is back
// under its cap. Must be called with mu held.
func (s *MemoryStore) prune(now time.Time) {
	for k, e := range s.entries {
		if s.expired(e, now) {
			delete(s.entries, k)
		}
	}
	for len(s.entries) > s.maxEntries {
		var oldest string
		var oldestAt time.Time
		first := true
		for k, e := range s.entries {
			if first || e.storedAt.Before(oldestAt) {
				oldest, oldestAt, first = k, e.storedAt, false
			}
		}
		delete(s.entries, oldest)
	}
}

// RedisStore keeps entries in Redis. Retention bounds how long a stale
// batch can still be served after the last successful fetch.
type RedisStore struct {
	client    redis.Cmdable
	prefix    string
	retention time.Duration
}

// NewRedisStore creates a store using client, namespacing keys with prefix
func NewRedisStore(client redis.Cmdable, prefix string, retention time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		prefix:    prefix,
		retention: retention,
	}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + "::quotes::" + key
}

// Get returns the value for key or ErrCacheMiss
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read quotes from redis: %w", err)
	}
	return v, nil
}

// Set stores value under key with the configured retention
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, s.retention).Err(); err != nil {
		return fmt.Errorf("failed to write quotes to redis: %w", err)
	}
	return nil
}
