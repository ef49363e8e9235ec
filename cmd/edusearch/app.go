// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/edusearch/internal/auth"
	"github.com/pdiddy/edusearch/internal/cache"
	"github.com/pdiddy/edusearch/internal/logger"
	"github.com/pdiddy/edusearch/internal/metrics"
	"github.com/pdiddy/edusearch/internal/results"
	"github.com/pdiddy/edusearch/internal/search"
	"github.com/pdiddy/edusearch/internal/service"
	"github.com/pdiddy/edusearch/internal/store"
	"github.com/pdiddy/edusearch/pkg/types"
)

// app holds the components shared by the subcommands.
type app struct {
	cfg       types.Config
	log       *zap.Logger
	metrics   *metrics.Metrics
	store     *store.Store
	agg       *search.Aggregator
	persister *results.Persister
	pager     *results.Pager
	svc       *service.Service

	closers []func() error
}

// newApp loads configuration and opens the store. The provider backends
// and their cache are only built when withSources is set.
func newApp(ctx context.Context, withSources bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, metrics: metrics.New()}
	a.closers = append(a.closers, func() error {
		log.Sync()
		return nil
	})

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = st
	a.closers = append(a.closers, st.Close)

	var backends []search.Backend
	if withSources {
		backends = search.NewBackends(cfg.Search, nil, log)
		c, err := a.candidateCache(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		backends = search.WithCache(backends, c, cfg.Cache.TTL, log)
	}

	a.agg = search.NewAggregator(cfg.Search, log, a.metrics, backends...)
	a.persister = results.NewPersister(st, log, a.metrics)
	a.pager = results.NewPager(st)
	a.svc = service.New(auth.ContextAuthenticator{}, a.agg, a.persister, a.pager,
		service.WithLogger(log),
		service.WithMetrics(a.metrics),
		service.WithEmptyQueryMode(cfg.Server.EmptyQueryMode),
	)

	log.Debug("components ready",
		zap.String("store_driver", st.Driver()),
		zap.Any("sources", a.agg.Sources()),
	)
	return a, nil
}

// candidateCache picks Redis when an address is configured and an
// in-process cache otherwise. A nil cache disables caching.
func (a *app) candidateCache(ctx context.Context) (search.CandidateCache, error) {
	cc := a.cfg.Cache
	if cc.TTL <= 0 {
		return nil, nil
	}
	if cc.RedisAddr == "" {
		return cache.NewMemory(cc.Size, cc.TTL), nil
	}
	r, err := cache.NewRedis(ctx, cc.RedisAddr, cc.RedisPassword)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, r.Close)
	return r, nil
}

// tokens returns the bearer token signer, which requires a secret.
func (a *app) tokens() (*auth.Tokens, error) {
	if a.cfg.Server.JWTSecret == "" {
		return nil, errors.New("no JWT secret: set server.jwt_secret, EDUSEARCH_SERVER_JWT_SECRET or .secrets/jwt-secret")
	}
	return auth.NewTokens([]byte(a.cfg.Server.JWTSecret))
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("closing: %w", err)
	}
	return nil
}

// userContext attaches a CLI-supplied identity.
func userContext(ctx context.Context, user string) (context.Context, error) {
	if user == "" {
		return nil, errors.New("--user is required")
	}
	return auth.NewContext(ctx, auth.Identity{UserID: user}), nil
}
