// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pdiddy/edusearch/internal/auth"
	"github.com/pdiddy/edusearch/internal/service"
	"github.com/pdiddy/edusearch/pkg/types"
)

func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{}
	for _, hc := range s.checks {
		if err := hc.Check(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			checks[hc.Name] = err.Error()
			continue
		}
		checks[hc.Name] = "ok"
	}
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "service": "edusearch", "checks": checks})
}

// handleSearchQuery serves GET /api/search?searchQuery=&page=&pageSize=.
func (s *Server) handleSearchQuery(c *gin.Context) {
	var req service.Request
	if err := c.ShouldBindQuery(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid query parameters: "+err.Error())
		return
	}
	s.search(c, req)
}

// handleSearchBody serves POST /api/search with a JSON body. An empty
// body, sized or chunked, is a browse request.
func (s *Server) handleSearchBody(c *gin.Context) {
	var req service.Request
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			abortWithError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	s.search(c, req)
}

func (s *Server) search(c *gin.Context, req service.Request) {
	out, err := s.svc.Search(c.Request.Context(), req)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.Is(err, auth.ErrNotAuthenticated):
			abortWithError(c, http.StatusUnauthorized, "authentication required")
		case errors.As(err, &verr):
			abortWithError(c, http.StatusBadRequest, verr.Error())
		default:
			s.log.Error("search failed", zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, "search failed")
		}
		return
	}
	if len(out.SourceErrors) > 0 {
		s.log.Debug("search served with source failures", zap.Strings("sources", out.SourceErrors))
	}
	c.JSON(http.StatusOK, out.Response)
}

// abortWithError writes an empty result page carrying msg.
func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, service.Response{
		Results:    []types.PublicResult{},
		Pagination: types.NewPagination(types.DefaultPage, types.DefaultPageSize, 0),
		Error:      msg,
	})
}
