// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package service runs a search request end to end: resolve the caller,
// fetch and persist candidates for a non-blank query, then read back a
// page of the caller's stored results.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/edusearch/internal/auth"
	"github.com/pdiddy/edusearch/internal/logger"
	"github.com/pdiddy/edusearch/internal/metrics"
	"github.com/pdiddy/edusearch/internal/results"
	"github.com/pdiddy/edusearch/internal/search"
	"github.com/pdiddy/edusearch/pkg/types"
)

// State is a step of a search request.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StatePersisting State = "persisting"
	StateReading    State = "reading"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Request modes, used for logging and metrics.
const (
	ModeSearch = "search"
	ModeBrowse = "browse"
)

// ReadFailureMessage is returned to clients when stored results cannot
// be read.
const ReadFailureMessage = "results are temporarily unavailable"

// ValidationError reports a request the caller must fix.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Aggregator fetches candidates from every source.
type Aggregator interface {
	Aggregate(ctx context.Context, query string) search.Output
}

// Persister stores candidates for an owner.
type Persister interface {
	Persist(ctx context.Context, owner string, candidates []types.CandidateResult) ([]types.StoredResult, results.PersistSummary)
}

// Pager reads a page of an owner's stored results.
type Pager interface {
	Page(ctx context.Context, owner, filter string, page, pageSize int) (types.SearchPage, error)
}

// Request is an inbound search. Page and PageSize below 1 fall back to
// 1 and 10; PageSize above 100 is rejected.
type Request struct {
	Query    string `json:"searchQuery" form:"searchQuery"`
	Page     int    `json:"page" form:"page"`
	PageSize int    `json:"pageSize" form:"pageSize"`
}

// Response is what the boundary returns to the client.
type Response struct {
	Results    []types.PublicResult `json:"results"`
	Pagination types.Pagination     `json:"pagination"`
	Error      string               `json:"error,omitempty"`
}

// Outcome is a finished request: the response plus what happened on the
// way, for logs and tests.
type Outcome struct {
	Response Response
	Mode     string
	States   []State
	Fetched  int
	Persist  results.PersistSummary

	// SourceErrors lists sources that failed during Fetching.
	SourceErrors []string
}

// State returns the terminal state.
func (o *Outcome) State() State {
	if len(o.States) == 0 {
		return StateIdle
	}
	return o.States[len(o.States)-1]
}

func (o *Outcome) enter(s State) {
	o.States = append(o.States, s)
}

// Service orchestrates one search request at a time; it holds no
// per-request state and is safe for concurrent use.
type Service struct {
	auth      auth.Authenticator
	agg       Aggregator
	persister Persister
	pager     Pager
	emptyMode types.EmptyQueryMode
	log       *zap.Logger
	metrics   *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = logger.OrNop(l) } }

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithEmptyQueryMode selects how a blank query is treated.
func WithEmptyQueryMode(m types.EmptyQueryMode) Option {
	return func(s *Service) { s.emptyMode = m }
}

// New wires the collaborators. Blank queries browse history by default.
func New(a auth.Authenticator, agg Aggregator, p Persister, pager Pager, opts ...Option) *Service {
	s := &Service{
		auth:      a,
		agg:       agg,
		persister: p,
		pager:     pager,
		emptyMode: types.EmptyQueryBrowse,
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search runs req for the caller in ctx. It returns auth.ErrNotAuthenticated
// when there is no caller, and a *ValidationError for a page size above
// types.MaxPageSize or a blank query in reject mode. Source and store failures never surface as errors: a
// failed read yields an empty page with Response.Error set.
func (s *Service) Search(ctx context.Context, req Request) (*Outcome, error) {
	out := &Outcome{Mode: ModeBrowse}
	out.enter(StateIdle)

	query := strings.TrimSpace(req.Query)
	if query != "" {
		out.Mode = ModeSearch
	}

	id, err := s.auth.CurrentUser(ctx)
	if err != nil {
		out.enter(StateFailed)
		s.metrics.ObserveSearch(out.Mode, string(StateFailed))
		if errors.Is(err, auth.ErrNotAuthenticated) {
			return out, err
		}
		return out, fmt.Errorf("%w: %v", auth.ErrNotAuthenticated, err)
	}

	if req.PageSize > types.MaxPageSize {
		out.enter(StateFailed)
		s.metrics.ObserveSearch(out.Mode, string(StateFailed))
		return out, &ValidationError{Field: "pageSize", Reason: fmt.Sprintf("must be at most %d", types.MaxPageSize)}
	}

	if query == "" && s.emptyMode == types.EmptyQueryReject {
		out.enter(StateFailed)
		s.metrics.ObserveSearch(out.Mode, string(StateFailed))
		return out, &ValidationError{Field: "searchQuery", Reason: "must not be empty"}
	}

	log := s.log.With(zap.String("owner", id.UserID), zap.String("mode", out.Mode))

	if query != "" {
		s.fetchAndPersist(ctx, log, id.UserID, query, out)
	}

	out.enter(StateReading)
	page, err := s.pager.Page(ctx, id.UserID, query, req.Page, req.PageSize)
	if err != nil {
		log.Error("reading stored results failed", zap.Error(err))
		p, size := types.NormalizePage(req.Page, req.PageSize)
		out.Response = Response{
			Results:    []types.PublicResult{},
			Pagination: types.NewPagination(p, size, 0),
			Error:      ReadFailureMessage,
		}
	} else {
		out.Response = Response{
			Results:    page.PublicItems(),
			Pagination: page.Pagination,
		}
	}

	out.enter(StateDone)
	s.metrics.ObserveSearch(out.Mode, string(StateDone))
	log.Info("search finished",
		zap.String("query", query),
		zap.Int("fetched", out.Fetched),
		zap.Int("inserted", out.Persist.Inserted),
		zap.Int("returned", len(out.Response.Results)),
		zap.Int("total", out.Response.Pagination.TotalItems))
	return out, nil
}

// fetchAndPersist runs Fetching and Persisting. A panic in either is
// logged and the request moves on to Reading.
func (s *Service) fetchAndPersist(ctx context.Context, log *zap.Logger, owner, query string, out *Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("search pipeline panicked; serving stored results",
				zap.String("state", string(out.State())),
				zap.Any("panic", r))
		}
	}()

	out.enter(StateFetching)
	fetched := s.agg.Aggregate(ctx, query)
	out.Fetched = len(fetched.Candidates)
	for _, e := range fetched.Errors {
		out.SourceErrors = append(out.SourceErrors, e.Error())
	}

	out.enter(StatePersisting)
	_, out.Persist = s.persister.Persist(ctx, owner, fetched.Candidates)
}
