// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache holds candidate caches keyed by source and query. Both
// implementations satisfy search.CandidateCache.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pdiddy/edusearch/pkg/types"
)

// DefaultMemorySize bounds a Memory cache when no size is configured.
const DefaultMemorySize = 1024

// Memory is an in-process LRU cache. Entries expire after the cache's TTL
// whether or not they are read again, and the least recently used entry
// is evicted once size entries are held.
type Memory struct {
	lru *expirable.LRU[string, []types.CandidateResult]
}

// NewMemory returns an empty Memory cache holding at most size entries,
// each for ttl. size <= 0 uses DefaultMemorySize.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &Memory{lru: expirable.NewLRU[string, []types.CandidateResult](size, nil, ttl)}
}

// Get returns a copy of the entry for key if it has not expired.
func (m *Memory) Get(_ context.Context, key string) ([]types.CandidateResult, bool, error) {
	items, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]types.CandidateResult(nil), items...), true, nil
}

// Set stores a copy of items under key. The entry lives for the TTL the
// cache was built with; ttl <= 0 stores nothing.
func (m *Memory) Set(_ context.Context, key string, items []types.CandidateResult, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.lru.Add(key, append([]types.CandidateResult(nil), items...))
	return nil
}

// Len reports the number of entries not yet evicted.
func (m *Memory) Len() int {
	return m.lru.Len()
}
