// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics defines the Prometheus collectors for the search pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "edusearch"

// Provider fetch outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomeOpen    = "breaker_open"
)

// Persist outcomes.
const (
	PersistInserted = "inserted"
	PersistExisting = "existing"
	PersistFailed   = "failed"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	providerFetches  *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	persisted        *prometheus.CounterVec
	searches         *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		providerFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fetches_total",
			Help:      "Source backend fetches by outcome.",
		}, []string{"source", "outcome"}),
		providerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_fetch_duration_seconds",
			Help:      "Time spent fetching from a source backend.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		persisted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persisted_candidates_total",
			Help:      "Candidates handled by the persister by outcome.",
		}, []string{"outcome"}),
		searches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Search requests by terminal state.",
		}, []string{"mode", "state"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFetch records one backend fetch.
func (m *Metrics) ObserveFetch(source, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.providerFetches.WithLabelValues(source, outcome).Inc()
	m.providerDuration.WithLabelValues(source).Observe(took.Seconds())
}

// ObservePersist records one persisted candidate.
func (m *Metrics) ObservePersist(outcome string) {
	if m == nil {
		return
	}
	m.persisted.WithLabelValues(outcome).Inc()
}

// ObserveSearch records a finished search request.
func (m *Metrics) ObserveSearch(mode, state string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(mode, state).Inc()
}
