// Package api exposes the query pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mbaizhakyp/floodwise/internal/observability"
	"github.com/mbaizhakyp/floodwise/internal/pipeline"
)

// QueryRunner executes a flood-information query end to end.
type QueryRunner interface {
	Run(ctx context.Context, query string) (*pipeline.Result, error)
}

// Server hosts the HTTP API.
type Server struct {
	runner  QueryRunner
	logger  *observability.Logger
	metrics *observability.Metrics
	timeout time.Duration
}

// NewServer creates a new API server. metrics may be nil.
func NewServer(runner QueryRunner, logger *observability.Logger, metrics *observability.Metrics, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Server{
		runner:  runner,
		logger:  logger.WithComponent("api"),
		metrics: metrics,
		timeout: timeout,
	}
}

// Router builds the chi router with all routes configured.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(s.timeout))
	r.Use(s.countRequests)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
	})

	return r
}

// QueryRequestDTO is the POST /v1/query request body.
type QueryRequestDTO struct {
	Query string `json:"query"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "floodwise",
	})
}

// handleQuery handles POST /v1/query.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := s.runner.Run(r.Context(), req.Query)
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuery):
		s.writeError(w, http.StatusBadRequest, "query is required", "")
	case errors.Is(err, pipeline.ErrNoLocations):
		s.writeError(w, http.StatusUnprocessableEntity, "no geocodable locations in query", err.Error())
	case err != nil:
		s.logger.Error().Err(err).Msg("query failed")
		s.writeError(w, http.StatusInternalServerError, "query failed", err.Error())
	default:
		s.writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, details string) {
	s.writeJSON(w, status, errorResponse{Error: message, Details: details})
}

// countRequests records per-path request counts by response status.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.metrics.HTTPRequests.WithLabelValues(r.URL.Path, strconv.Itoa(ww.Status())).Inc()
	})
}
