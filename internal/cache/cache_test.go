// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/edusearch/internal/search"
	"github.com/pdiddy/edusearch/pkg/types"
)

var (
	_ search.CandidateCache = (*Memory)(nil)
	_ search.CandidateCache = (*Redis)(nil)
)

func TestMemoryGetSet(t *testing.T) {
	m := NewMemory(16, time.Minute)
	ctx := context.Background()

	_, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	items := []types.CandidateResult{{Title: "Volcanoes", Source: types.SourcePBS}}
	require.NoError(t, m.Set(ctx, "k", items, time.Minute))

	got, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, items, got)

	got[0].Title = "mutated"
	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "Volcanoes", again[0].Title, "callers must not alias cached slices")
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory(16, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []types.CandidateResult{{Title: "x"}}, time.Minute))
	_, found, _ := m.Get(ctx, "k")
	assert.True(t, found)

	assert.Eventually(t, func() bool {
		_, found, _ := m.Get(ctx, "k")
		return !found
	}, 2*time.Second, 5*time.Millisecond)
}

func TestMemoryEvictsUnreadExpiredEntries(t *testing.T) {
	m := NewMemory(16, 20*time.Millisecond)
	ctx := context.Background()

	for _, q := range []string{"volcanoes", "glaciers", "tides"} {
		require.NoError(t, m.Set(ctx, q, []types.CandidateResult{{Title: q}}, time.Minute))
	}
	assert.Equal(t, 3, m.Len())

	assert.Eventually(t, func() bool { return m.Len() == 0 }, 2*time.Second, 5*time.Millisecond,
		"expired entries must be dropped without being read")
}

func TestMemoryBoundedSize(t *testing.T) {
	m := NewMemory(2, time.Minute)
	ctx := context.Background()

	for _, q := range []string{"a", "b", "c"} {
		require.NoError(t, m.Set(ctx, q, []types.CandidateResult{{Title: q}}, time.Minute))
	}
	assert.Equal(t, 2, m.Len())
	_, found, _ := m.Get(ctx, "a")
	assert.False(t, found, "least recently used entry is evicted")
	_, found, _ = m.Get(ctx, "c")
	assert.True(t, found)
}

func TestMemoryZeroTTLStoresNothing(t *testing.T) {
	m := NewMemory(16, time.Minute)
	require.NoError(t, m.Set(context.Background(), "k", []types.CandidateResult{{Title: "x"}}, 0))
	assert.Equal(t, 0, m.Len())
}

func TestMemoryBehindCachedBackend(t *testing.T) {
	calls := 0
	inner := backendFunc(func(context.Context, string) ([]types.CandidateResult, error) {
		calls++
		return []types.CandidateResult{{Title: "Rocks", Source: types.SourceCK12}}, nil
	})
	b := &search.CachedBackend{Backend: inner, Cache: NewMemory(0, time.Minute), TTL: time.Minute}

	for i := 0; i < 3; i++ {
		got, err := b.Fetch(context.Background(), "rocks")
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	assert.Equal(t, 1, calls)
}

type backendFunc func(ctx context.Context, query string) ([]types.CandidateResult, error)

func (f backendFunc) Name() types.Source { return types.SourceCK12 }

func (f backendFunc) Fetch(ctx context.Context, query string) ([]types.CandidateResult, error) {
	return f(ctx, query)
}
