// Package cache provides a Redis-backed read-through cache for catalog facet
// data (category counts, tag counts, and aggregate stats).
//
// Facet queries UNNEST the array columns of the full skills table, which is the
// most expensive read path in the API. The cache stores the JSON-encoded query
// results under fixed keys with a short TTL, and fails open: any Redis error
// falls back to the database so a cache outage degrades latency, not
// availability.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clawhub/clawhub/internal/db/models"
	"github.com/clawhub/clawhub/internal/telemetry"
)

const (
	keyCategories = "clawhub:facets:categories"
	keyTags       = "clawhub:facets:tags"
	keyStats      = "clawhub:facets:stats"

	// DefaultTTL bounds staleness when the warmer job is not running.
	DefaultTTL = 5 * time.Minute
)

// FacetSource is the subset of the skill repository the cache reads through to.
type FacetSource interface {
	Categories(ctx context.Context) ([]models.CategoryCount, error)
	Tags(ctx context.Context, limit int) ([]models.TagCount, error)
	Stats(ctx context.Context) (*models.CatalogStats, error)
}

// FacetCache wraps a FacetSource with Redis caching. A nil client disables
// caching entirely and every call goes straight to the source.
type FacetCache struct {
	client *redis.Client
	source FacetSource
	ttl    time.Duration
}

func NewFacetCache(client *redis.Client, source FacetSource, ttl time.Duration) *FacetCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &FacetCache{
		client: client,
		source: source,
		ttl:    ttl,
	}
}

// Categories returns category facet counts, serving from Redis when possible.
func (c *FacetCache) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	var cached []models.CategoryCount
	if c.lookup(ctx, "categories", keyCategories, &cached) {
		return cached, nil
	}

	fresh, err := c.source.Categories(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, keyCategories, fresh)
	return fresh, nil
}

// Tags returns the top tag facet counts, serving from Redis when possible.
// The limit is applied after a cache hit so all callers share one cached set.
func (c *FacetCache) Tags(ctx context.Context, limit int) ([]models.TagCount, error) {
	var cached []models.TagCount
	if c.lookup(ctx, "tags", keyTags, &cached) {
		if limit > 0 && limit < len(cached) {
			cached = cached[:limit]
		}
		return cached, nil
	}

	fresh, err := c.source.Tags(ctx, limit)
	if err != nil {
		return nil, err
	}
	c.store(ctx, keyTags, fresh)
	return fresh, nil
}

// Stats returns catalog aggregate statistics, serving from Redis when possible.
func (c *FacetCache) Stats(ctx context.Context) (*models.CatalogStats, error) {
	var cached models.CatalogStats
	if c.lookup(ctx, "stats", keyStats, &cached) {
		return &cached, nil
	}

	fresh, err := c.source.Stats(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, keyStats, fresh)
	return fresh, nil
}

// Refresh recomputes every facet from the source and rewrites the cache keys.
// The warmer job calls this on a fixed interval so steady-state traffic never
// takes a cache miss.
func (c *FacetCache) Refresh(ctx context.Context, tagLimit int) error {
	if c.client == nil {
		return nil
	}

	categories, err := c.source.Categories(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh category facets: %w", err)
	}
	c.store(ctx, keyCategories, categories)

	tags, err := c.source.Tags(ctx, tagLimit)
	if err != nil {
		return fmt.Errorf("failed to refresh tag facets: %w", err)
	}
	c.store(ctx, keyTags, tags)

	stats, err := c.source.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh catalog stats: %w", err)
	}
	c.store(ctx, keyStats, stats)

	return nil
}

// lookup fetches and decodes a cached value. Returns true only on a usable
// hit; Redis errors and decode failures count as misses.
func (c *FacetCache) lookup(ctx context.Context, facet, key string, dest interface{}) bool {
	if c.client == nil {
		return false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("facet cache lookup failed, falling back to database", "key", key, "error", err)
		}
		telemetry.FacetCacheRequestsTotal.WithLabelValues(facet, "miss").Inc()
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		slog.Warn("facet cache entry is corrupt, falling back to database", "key", key, "error", err)
		telemetry.FacetCacheRequestsTotal.WithLabelValues(facet, "miss").Inc()
		return false
	}

	telemetry.FacetCacheRequestsTotal.WithLabelValues(facet, "hit").Inc()
	return true
}

// store writes a value to Redis. Failures are logged and swallowed so a cache
// outage never turns a successful database read into an API error.
func (c *FacetCache) store(ctx context.Context, key string, value interface{}) {
	if c.client == nil {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		slog.Warn("failed to encode facet cache entry", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		slog.Warn("failed to write facet cache entry", "key", key, "error", err)
	}
}
