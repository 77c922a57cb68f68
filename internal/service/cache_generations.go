package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	hierarchyGenerationKey = "cks:generation:hierarchy"
	feedGenerationKey      = "cks:generation:feed"
)

// CacheInvalidator retires cached ecosystems and feeds after writes.
type CacheInvalidator interface {
	InvalidateFeeds(ctx context.Context)
	InvalidateHierarchy(ctx context.Context)
}

// CacheGenerations versions cache keys with Redis counters. Bumping a counter orphans every key
// built from the previous value; orphans expire through their TTL.
type CacheGenerations struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewCacheGenerations constructs the generation tracker. A nil client disables caching.
func NewCacheGenerations(client *redis.Client, logger zerolog.Logger) *CacheGenerations {
	return &CacheGenerations{
		client: client,
		logger: logger.With().Str("component", "cache_generations").Logger(),
	}
}

// Hierarchy returns the current hierarchy generation, or false when caching is unavailable.
func (g *CacheGenerations) Hierarchy(ctx context.Context) (string, bool) {
	return g.current(ctx, hierarchyGenerationKey)
}

// Feeds returns the current feed generation, or false when caching is unavailable.
func (g *CacheGenerations) Feeds(ctx context.Context) (string, bool) {
	return g.current(ctx, feedGenerationKey)
}

// InvalidateFeeds bumps the feed generation.
func (g *CacheGenerations) InvalidateFeeds(ctx context.Context) {
	g.bump(ctx, feedGenerationKey)
}

// InvalidateHierarchy bumps the hierarchy generation. Feeds depend on the resolved scope, so they
// are retired as well.
func (g *CacheGenerations) InvalidateHierarchy(ctx context.Context) {
	g.bump(ctx, hierarchyGenerationKey)
	g.bump(ctx, feedGenerationKey)
}

func (g *CacheGenerations) current(ctx context.Context, key string) (string, bool) {
	if g == nil || g.client == nil {
		return "", false
	}
	value, err := g.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return "0", true
	}
	if err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("failed to read cache generation")
		return "", false
	}
	return strconv.FormatInt(value, 10), true
}

func (g *CacheGenerations) bump(ctx context.Context, key string) {
	if g == nil || g.client == nil {
		return
	}
	if err := g.client.Incr(ctx, key).Err(); err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("failed to bump cache generation")
	}
}
