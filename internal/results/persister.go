// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package results turns aggregated candidates into per-owner stored
// results and reads them back as pages.
package results

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/edusearch/internal/logger"
	"github.com/pdiddy/edusearch/internal/metrics"
	"github.com/pdiddy/edusearch/internal/store"
	"github.com/pdiddy/edusearch/pkg/types"
)

// Writer is the store surface the Persister needs.
type Writer interface {
	FindByKey(ctx context.Context, key types.NaturalKey) (types.StoredResult, bool, error)
	InsertIfAbsent(ctx context.Context, owner string, c types.CandidateResult) (types.StoredResult, bool, error)
}

// Reader is the store surface the Pager needs.
type Reader interface {
	Count(ctx context.Context, f store.Filter) (int, error)
	List(ctx context.Context, f store.Filter, limit, offset int) ([]types.StoredResult, error)
}

// PersistSummary counts what happened to each candidate in a batch.
type PersistSummary struct {
	Inserted int
	Existing int
	Failed   int
}

// Total returns the number of candidates handled.
func (s PersistSummary) Total() int {
	return s.Inserted + s.Existing + s.Failed
}

// Persister stores candidates for an owner, reusing records that already
// exist under the same natural key.
type Persister struct {
	store   Writer
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewPersister returns a Persister writing to w.
func NewPersister(w Writer, log *zap.Logger, m *metrics.Metrics) *Persister {
	return &Persister{store: w, log: logger.OrNop(log), metrics: m}
}

// Persist handles candidates one at a time in input order. Existing
// records are returned unchanged; absent ones are inserted. A candidate
// that fails to store is logged and skipped. The batch runs to
// completion even if ctx is cancelled, so a disconnecting caller never
// leaves it half-applied.
func (p *Persister) Persist(ctx context.Context, owner string, candidates []types.CandidateResult) ([]types.StoredResult, PersistSummary) {
	ctx = context.WithoutCancel(ctx)

	var (
		stored  []types.StoredResult
		summary PersistSummary
	)
	for i, c := range candidates {
		r, inserted, err := p.persistOne(ctx, owner, c)
		if err != nil {
			summary.Failed++
			p.metrics.ObservePersist(metrics.PersistFailed)
			p.log.Warn("storing candidate failed",
				zap.Int("index", i),
				zap.String("title", c.Title),
				zap.String("source", string(c.Source)),
				zap.Error(err))
			continue
		}
		if inserted {
			summary.Inserted++
			p.metrics.ObservePersist(metrics.PersistInserted)
		} else {
			summary.Existing++
			p.metrics.ObservePersist(metrics.PersistExisting)
		}
		stored = append(stored, r)
	}

	p.log.Debug("persisted candidates",
		zap.String("owner", owner),
		zap.Int("inserted", summary.Inserted),
		zap.Int("existing", summary.Existing),
		zap.Int("failed", summary.Failed))
	return stored, summary
}

func (p *Persister) persistOne(ctx context.Context, owner string, c types.CandidateResult) (types.StoredResult, bool, error) {
	if !c.ContentType.Valid() {
		return types.StoredResult{}, false, fmt.Errorf("unknown content type %q", c.ContentType)
	}
	key := types.NaturalKey{Title: c.Title, Source: c.Source, OwnerID: owner}
	existing, found, err := p.store.FindByKey(ctx, key)
	if err != nil {
		return types.StoredResult{}, false, err
	}
	if found {
		return existing, false, nil
	}
	return p.store.InsertIfAbsent(ctx, owner, c)
}
