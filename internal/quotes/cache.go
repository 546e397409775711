package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// Cache wraps a Source with a per-asset-set cache.
//
// Entries younger than the TTL are served without calling upstream.
// Concurrent misses for the same asset set share one upstream request.
// When a refresh fails the last good batch is returned alongside a
// *StaleError, so callers keep valuing with old prices until a fetch
// succeeds.
type Cache struct {
	source Source
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	now    func() time.Time
	log    zerolog.Logger
}

// NewCache creates a cache in front of source
func NewCache(source Source, store Store, ttl time.Duration, log zerolog.Logger) *Cache {
	return &Cache{
		source: source,
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		log:    log.With().Str("component", "quote-cache").Logger(),
	}
}

// Fetch returns quotes for ids, from cache when fresh
func (c *Cache) Fetch(ctx context.Context, ids []string) (models.QuoteBatch, error) {
	return c.get(ctx, ids, false)
}

// Refresh bypasses the TTL and always asks upstream, falling back to the
// last good batch on failure
func (c *Cache) Refresh(ctx context.Context, ids []string) (models.QuoteBatch, error) {
	return c.get(ctx, ids, true)
}

func (c *Cache) get(ctx context.Context, ids []string, force bool) (models.QuoteBatch, error) {
	ids = normalizeIDs(ids)
	if len(ids) == 0 {
		return emptyBatch(c.now().UTC()), nil
	}

	key := cacheKey(ids)
	cached, hit := c.load(ctx, key)
	if hit && !force && c.now().Sub(cached.FetchedAt) < c.ttl {
		return cached, nil
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		// detached so one caller giving up does not fail the others;
		// the source's own timeout still bounds the request
		batch, err := c.source.Fetch(context.WithoutCancel(ctx), ids)
		if err != nil {
			return nil, err
		}
		c.save(ctx, key, batch)
		return batch, nil
	})
	if err == nil {
		if shared {
			c.log.Debug().Str("key", key).Msg("Shared in-flight quote fetch")
		}
		return v.(models.QuoteBatch), nil
	}

	if hit {
		c.log.Warn().Err(err).Str("key", key).Time("fetched_at", cached.FetchedAt).Msg("Quote refresh failed, serving stale quotes")
		return cached, &StaleError{Err: err, FetchedAt: cached.FetchedAt}
	}
	c.log.Error().Err(err).Str("key", key).Msg("Quote fetch failed with nothing cached")
	return emptyBatch(c.now().UTC()), err
}

func (c *Cache) load(ctx context.Context, key string) (models.QuoteBatch, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.log.Warn().Err(err).Str("key", key).Msg("Quote cache read failed")
		}
		return models.QuoteBatch{}, false
	}

	var batch models.QuoteBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		return models.QuoteBatch{}, false
	}
	if batch.Quotes == nil {
		batch.Quotes = []models.PriceQuote{}
	}
	return batch, true
}

func (c *Cache) save(ctx context.Context, key string, batch models.QuoteBatch) {
	data, err := json.Marshal(batch)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to encode quotes for cache")
		return
	}
	if err := c.store.Set(context.WithoutCancel(ctx), key, data); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Quote cache write failed")
	}
}

// normalizeIDs trims, drops blanks and duplicates, and sorts so that the
// same asset set always maps to the same key
func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func cacheKey(ids []string) string {
	return strings.Join(ids, ",")
}
