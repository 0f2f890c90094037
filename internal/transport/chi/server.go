// Package chi exposes the engine over REST: POST /v1/retrieve, the health
// endpoint, and Prometheus metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/finquery-labs/finrag/internal/domain"
	"github.com/finquery-labs/finrag/internal/domain/search/request"
	"github.com/finquery-labs/finrag/internal/domain/search/result"
	healthuc "github.com/finquery-labs/finrag/internal/usecase/health"
)

// Retriever is the engine contract the transport depends on.
type Retriever interface {
	Retrieve(ctx context.Context, req request.Request) (result.Set, error)
}

// HealthChecker aggregates component availability.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server handles the REST API.
type Server struct {
	retriever     Retriever
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(retriever Retriever, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		retriever: retriever,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeInvalidQuery),
		sentinelHandler(domain.ErrConfiguration, http.StatusBadRequest, codeConfiguration),
		sentinelHandler(domain.ErrCollectionNotFound, http.StatusNotFound, codeCollectionNotFound),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrNoSourcesAvailable, http.StatusServiceUnavailable, codeNoSources),
		sentinelHandler(domain.ErrTimeoutExceeded, http.StatusGatewayTimeout, codeTimeout),
	}
	return s
}

// Routes mounts the API on a chi router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/retrieve", s.RetrieveHandler)
	r.Get("/healthz", s.HealthHandler)
	r.Get("/metrics", s.MetricsHandler)
}

// API error codes.
const (
	codeBadRequest         = "bad_request"
	codeInvalidQuery       = "invalid_query"
	codeConfiguration      = "configuration_error"
	codeCollectionNotFound = "collection_not_found"
	codeEmbeddingProvider  = "embedding_provider_error"
	codeNoSources          = "no_sources_available"
	codeTimeout            = "timeout_exceeded"
	codeInternal           = "internal_error"
)

type retrieveRequest struct {
	Query   string            `json:"query"`
	Filters map[string]string `json:"filters,omitempty"`
	TopK    *int              `json:"top_k,omitempty"`
	Strict  bool              `json:"strict,omitempty"`
}

type citationResponse struct {
	DocumentID string `json:"document_id"`
	SourceName string `json:"source_name,omitempty"`
	Collection string `json:"collection"`
}

type rankedResponse struct {
	ChunkID  string           `json:"chunk_id"`
	Text     string           `json:"text"`
	Score    float64          `json:"score"`
	Citation citationResponse `json:"citation"`
}

type retrieveResponse struct {
	Results           []rankedResponse `json:"results"`
	Partial           bool             `json:"partial"`
	FailedCollections []string         `json:"failed_collections,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RetrieveHandler handles POST /v1/retrieve.
func (s *Server) RetrieveHandler(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	topK := request.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}

	domReq, err := request.New(req.Query, req.Filters, topK, req.Strict)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	set, err := s.retriever.Retrieve(r.Context(), domReq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, setToResponse(set))
}

// HealthHandler handles GET /healthz.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": string(report.Status),
		"checks": checks,
	})
}

// MetricsHandler handles GET /metrics.
func (s *Server) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setToResponse(set result.Set) retrieveResponse {
	items := make([]rankedResponse, set.Len())
	for i, res := range set.Results() {
		items[i] = rankedResponse{
			ChunkID: res.ChunkID(),
			Text:    res.Text(),
			Score:   res.Score(),
			Citation: citationResponse{
				DocumentID: res.Citation().DocumentID(),
				SourceName: res.Citation().SourceName(),
				Collection: res.Citation().Collection(),
			},
		}
	}
	return retrieveResponse{
		Results:           items,
		Partial:           set.Partial(),
		FailedCollections: set.FailedCollections(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrConfiguration,
		domain.ErrCollectionNotFound,
		domain.ErrEmbeddingProviderError,
		domain.ErrNoSourcesAvailable,
		domain.ErrTimeoutExceeded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}
