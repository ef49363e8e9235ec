// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/edusearch/internal/logger"
	"github.com/pdiddy/edusearch/pkg/types"
)

// CandidateCache stores a backend's candidates for a normalized query.
// Get reports found=false on a miss.
type CandidateCache interface {
	Get(ctx context.Context, key string) (items []types.CandidateResult, found bool, err error)
	Set(ctx context.Context, key string, items []types.CandidateResult, ttl time.Duration) error
}

// CachedBackend serves repeated queries from a CandidateCache. Cache
// errors are logged and fall through to the wrapped backend. Failed
// fetches are never cached.
type CachedBackend struct {
	Backend
	Cache  CandidateCache
	TTL    time.Duration
	Logger *zap.Logger
}

// CacheKey derives the cache key for source and query. Queries that
// differ only in case or spacing share a key.
func CacheKey(source types.Source, query string) string {
	return "edusearch:candidates:" + string(source) + ":" + strings.ToLower(collapseSpace(query))
}

// Fetch returns cached candidates when present, otherwise fetches and
// caches them.
func (c *CachedBackend) Fetch(ctx context.Context, query string) ([]types.CandidateResult, error) {
	log := logger.OrNop(c.Logger)
	key := CacheKey(c.Name(), query)

	items, found, err := c.Cache.Get(ctx, key)
	switch {
	case err != nil:
		log.Warn("candidate cache read failed", zap.String("key", key), zap.Error(err))
	case found:
		return items, nil
	}

	items, err = c.Backend.Fetch(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := c.Cache.Set(ctx, key, items, c.TTL); err != nil {
		log.Warn("candidate cache write failed", zap.String("key", key), zap.Error(err))
	}
	return items, nil
}

// FetchTimeout forwards the wrapped backend's timeout, if any.
func (c *CachedBackend) FetchTimeout() time.Duration {
	if t, ok := c.Backend.(fetchTimeouter); ok {
		return t.FetchTimeout()
	}
	return 0
}

// WithCache wraps each backend in a CachedBackend. A nil cache or a
// non-positive ttl returns backends unchanged.
func WithCache(backends []Backend, cache CandidateCache, ttl time.Duration, log *zap.Logger) []Backend {
	if cache == nil || ttl <= 0 {
		return backends
	}
	out := make([]Backend, len(backends))
	for i, b := range backends {
		out[i] = &CachedBackend{Backend: b, Cache: cache, TTL: ttl, Logger: log}
	}
	return out
}
