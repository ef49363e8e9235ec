// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search fetches educational resources from third-party providers
// and normalizes them into candidates. Each provider is a Backend; the
// Aggregator fans a query out to all of them and joins the results in
// backend order.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/edusearch/internal/logger"
	"github.com/pdiddy/edusearch/internal/metrics"
	"github.com/pdiddy/edusearch/pkg/types"
)

const (
	defaultSourceTimeout   = 15 * time.Second
	defaultScrapeTimeout   = 45 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second
)

// Backend fetches candidates for a query from a single provider.
type Backend interface {
	Name() types.Source
	Fetch(ctx context.Context, query string) ([]types.CandidateResult, error)
}

// fetchTimeouter is implemented by backends that need a different bound
// than the aggregator default, such as the browser-driven scraper.
type fetchTimeouter interface {
	FetchTimeout() time.Duration
}

// ProviderError records why a backend produced no candidates. It is
// logged and counted, never returned to callers of Aggregate.
type ProviderError struct {
	Source types.Source
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Output holds the joined candidates and the failures that were skipped.
type Output struct {
	Candidates []types.CandidateResult
	Errors     []*ProviderError
}

type guardedBackend struct {
	Backend
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

// Aggregator runs every backend concurrently for a query.
type Aggregator struct {
	backends []guardedBackend
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// NewAggregator wraps backends, in priority order, with a per-backend
// timeout and circuit breaker taken from cfg.
func NewAggregator(cfg types.SearchConfig, log *zap.Logger, m *metrics.Metrics, backends ...Backend) *Aggregator {
	timeout := cfg.SourceTimeout
	if timeout <= 0 {
		timeout = defaultSourceTimeout
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}

	a := &Aggregator{log: logger.OrNop(log), metrics: m}
	for _, b := range backends {
		g := guardedBackend{Backend: b, timeout: timeout}
		if t, ok := b.(fetchTimeouter); ok && t.FetchTimeout() > 0 {
			g.timeout = t.FetchTimeout()
		}
		g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        string(b.Name()),
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				a.log.Info("source breaker state changed",
					zap.String("source", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to))
			},
		})
		a.backends = append(a.backends, g)
	}
	return a
}

// Sources lists the configured backends in priority order.
func (a *Aggregator) Sources() []types.Source {
	out := make([]types.Source, len(a.backends))
	for i, b := range a.backends {
		out[i] = b.Name()
	}
	return out
}

// Aggregate fans query out to all backends and waits for each to finish
// or time out. Candidates are concatenated in backend order, not arrival
// order. Failed backends contribute nothing; if every backend fails the
// output is empty and no error is returned.
func (a *Aggregator) Aggregate(ctx context.Context, query string) Output {
	query = strings.TrimSpace(query)
	if query == "" || len(a.backends) == 0 {
		return Output{}
	}

	slots := make([][]types.CandidateResult, len(a.backends))
	errs := make([]*ProviderError, len(a.backends))

	var g errgroup.Group
	for i, b := range a.backends {
		g.Go(func() error {
			results, err := a.fetch(ctx, b, query)
			if err != nil {
				errs[i] = &ProviderError{Source: b.Name(), Err: err}
				return nil
			}
			slots[i] = results
			return nil
		})
	}
	g.Wait()

	var out Output
	for i := range a.backends {
		if errs[i] != nil {
			a.log.Warn("source backend failed",
				zap.String("source", string(errs[i].Source)),
				zap.String("query", query),
				zap.Error(errs[i].Err))
			out.Errors = append(out.Errors, errs[i])
			continue
		}
		out.Candidates = append(out.Candidates, slots[i]...)
	}
	return out
}

type fetchResult struct {
	items []types.CandidateResult
	err   error
}

// fetch runs one backend under its timeout and breaker. The wait is
// bounded by the timeout even when the backend ignores cancellation.
func (a *Aggregator) fetch(ctx context.Context, b guardedBackend, query string) ([]types.CandidateResult, error) {
	fctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchResult{err: fmt.Errorf("backend panic: %v", r)}
			}
		}()
		v, err := b.breaker.Execute(func() (interface{}, error) {
			return b.Fetch(fctx, query)
		})
		items, _ := v.([]types.CandidateResult)
		done <- fetchResult{items: items, err: err}
	}()

	source := string(b.Name())
	select {
	case r := <-done:
		switch {
		case r.err == nil:
			a.metrics.ObserveFetch(source, metrics.OutcomeOK, time.Since(start))
			a.log.Debug("source backend returned",
				zap.String("source", source),
				zap.Int("candidates", len(r.items)),
				zap.Duration("took", time.Since(start)))
			return r.items, nil
		case errors.Is(r.err, gobreaker.ErrOpenState), errors.Is(r.err, gobreaker.ErrTooManyRequests):
			a.metrics.ObserveFetch(source, metrics.OutcomeOpen, time.Since(start))
		case errors.Is(r.err, context.DeadlineExceeded):
			a.metrics.ObserveFetch(source, metrics.OutcomeTimeout, time.Since(start))
		default:
			a.metrics.ObserveFetch(source, metrics.OutcomeError, time.Since(start))
		}
		return nil, r.err
	case <-fctx.Done():
		a.metrics.ObserveFetch(source, metrics.OutcomeTimeout, time.Since(start))
		return nil, fmt.Errorf("no response within %v: %w", b.timeout, fctx.Err())
	}
}

// NewBackends builds the enabled provider backends in priority order:
// PBS, CK12, then Khan Academy.
func NewBackends(cfg types.SearchConfig, client *http.Client, log *zap.Logger) []Backend {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	var backends []Backend
	if cfg.EnablePBS {
		backends = append(backends, &PBSBackend{Client: client, UserAgent: cfg.UserAgent})
	}
	if cfg.EnableCK12 {
		backends = append(backends, &CK12Backend{Client: client, UserAgent: cfg.UserAgent})
	}
	if cfg.EnableKhanAcademy {
		timeout := cfg.ScrapeTimeout
		if timeout <= 0 {
			timeout = defaultScrapeTimeout
		}
		backends = append(backends, &KhanAcademyBackend{
			Open:    RodOpener(cfg.BrowserBin),
			Timeout: timeout,
			Logger:  log,
		})
	}
	return backends
}
