// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the search service over HTTP with gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pdiddy/edusearch/internal/auth"
	"github.com/pdiddy/edusearch/internal/logger"
	"github.com/pdiddy/edusearch/internal/metrics"
	"github.com/pdiddy/edusearch/internal/service"
	"github.com/pdiddy/edusearch/pkg/types"
)

const (
	defaultAddr       = ":8080"
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Searcher runs one search request.
type Searcher interface {
	Search(ctx context.Context, req service.Request) (*service.Outcome, error)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server routes HTTP requests to the search service.
type Server struct {
	addr    string
	engine  *gin.Engine
	svc     Searcher
	tokens  *auth.Tokens
	metrics *metrics.Metrics
	checks  []HealthCheck
	log     *zap.Logger
}

// New builds the router. tokens may be nil, in which case every API
// request is unauthenticated.
func New(cfg types.ServerConfig, svc Searcher, tokens *auth.Tokens, m *metrics.Metrics, log *zap.Logger, checks ...HealthCheck) *Server {
	addr := cfg.Addr
	if addr == "" {
		addr = defaultAddr
	}
	s := &Server{
		addr:    addr,
		engine:  gin.New(),
		svc:     svc,
		tokens:  tokens,
		metrics: m,
		checks:  checks,
		log:     logger.OrNop(log),
	}

	s.engine.Use(gin.Recovery(), requestLogger(s.log), cors.New(corsConfig(cfg.AllowedOrigins)))

	s.engine.GET("/health", s.handleHealth)
	if m != nil {
		s.engine.GET("/metrics", gin.WrapH(m.Handler()))
	}

	api := s.engine.Group("/api", bearerAuth(tokens))
	api.GET("/search", s.handleSearchQuery)
	api.POST("/search", s.handleSearchBody)
	return s
}

// Handler returns the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving on %s: %w", s.addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.log.Info("server exited")
	return nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// bearerAuth puts the identity from a valid bearer token into the request
// context. Requests without an Authorization header pass through
// anonymous; a malformed or invalid token is rejected here.
func bearerAuth(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		tok, ok := auth.BearerToken(header)
		if !ok || tokens == nil {
			abortWithError(c, http.StatusUnauthorized, "invalid authorization header")
			return
		}
		id, err := tokens.Parse(tok)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "token expired"
			}
			abortWithError(c, http.StatusUnauthorized, msg)
			return
		}
		c.Request = c.Request.WithContext(auth.NewContext(c.Request.Context(), id))
		c.Next()
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
