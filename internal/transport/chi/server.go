// Package chi exposes the HTTP API: search, email drafting, enrichment
// triggers, and the live enrichment log stream.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/scout-hq/scout/internal/domain"
	"github.com/scout-hq/scout/internal/transport/pipeline"
	healthuc "github.com/scout-hq/scout/internal/usecase/health"
	"github.com/scout-hq/scout/internal/usecase/relay"
)

// Bulk enrichment defaults when the request body omits them.
const (
	defaultBatchSize     = 10
	defaultMaxConcurrent = 5
)

// Error codes returned in JSON error bodies.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeUpstreamError    = "upstream_error"
	codeInternalError    = "internal_error"
)

// Searcher runs profile searches.
type Searcher interface {
	Search(ctx context.Context, q domain.Query) (domain.SearchResponse, error)
}

// EmailDrafter drafts outreach emails.
type EmailDrafter interface {
	Draft(ctx context.Context, profile domain.Attributes, searchQuery string) (string, error)
}

// HealthChecker reports component health and index diagnostics.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
	Debug(ctx context.Context) (healthuc.DebugInfo, error)
}

// Relayer forwards an upstream event stream to a sink.
type Relayer interface {
	Run(ctx context.Context, open relay.StreamOpener, sink relay.Sink) error
}

// PipelineClient triggers enrichment jobs on the external pipeline.
type PipelineClient interface {
	ProcessProfile(ctx context.Context, linkedinURL string) (*pipeline.ProcessResult, error)
	OpenProfileStream(ctx context.Context, linkedinURL string) (io.ReadCloser, int, error)
	OpenBulkStream(ctx context.Context, batchSize, maxConcurrent int) (io.ReadCloser, int, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	search        Searcher
	email         EmailDrafter
	health        HealthChecker
	relay         Relayer
	pipeline      PipelineClient
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search Searcher,
	email EmailDrafter,
	health HealthChecker,
	relayer Relayer,
	pipelineClient PipelineClient,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:   search,
		email:    email,
		health:   health,
		relay:    relayer,
		pipeline: pipelineClient,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrMissingProfileURL, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeUpstreamError),
		sentinelHandler(domain.ErrVectorIndexUnavailable, http.StatusBadGateway, codeUpstreamError),
		sentinelHandler(domain.ErrPipelineUnavailable, http.StatusBadGateway, codeUpstreamError),
	}
	return s
}

// Routes registers all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/search", s.handleSearch)
	r.Post("/api/generate-email", s.handleGenerateEmail)
	r.Post("/api/add-record", s.handleAddRecord)
	r.Post("/api/update-contacts", s.handleUpdateContacts)
	r.Get("/api/debug", s.handleDebug)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

type searchRequest struct {
	Query    string `json:"query"`
	Location string `json:"location"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

type searchResponse struct {
	Analysis   string            `json:"analysis"`
	Matches    []matchItem       `json:"matches"`
	Pagination domain.Pagination `json:"pagination"`
}

type matchItem struct {
	ID       string        `json:"id"`
	Score    float64       `json:"score"`
	Metadata matchMetadata `json:"metadata"`
}

// matchMetadata flattens the stored profile fields with the generated ones,
// mirroring the shape the index stores per vector.
type matchMetadata struct {
	domain.Attributes
	ConciseSummary string   `json:"concise_summary"`
	CurrentRole    string   `json:"current_role"`
	PastRoles      []string `json:"past_roles"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := s.search.Search(r.Context(), domain.Query{
		Text:     req.Query,
		Location: req.Location,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	matches := make([]matchItem, len(resp.Matches))
	for i, m := range resp.Matches {
		matches[i] = matchItem{
			ID:    m.ID,
			Score: m.Score,
			Metadata: matchMetadata{
				Attributes:     m.Attrs,
				ConciseSummary: m.ConciseSummary,
				CurrentRole:    m.CurrentRole,
				PastRoles:      m.PastRoles,
			},
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Analysis:   resp.Analysis,
		Matches:    matches,
		Pagination: resp.Pagination,
	})
}

type generateEmailRequest struct {
	Profile     domain.Attributes `json:"profile"`
	SearchQuery string            `json:"searchQuery"`
}

func (s *Server) handleGenerateEmail(w http.ResponseWriter, r *http.Request) {
	var req generateEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	text, err := s.email.Draft(r.Context(), req.Profile, req.SearchQuery)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"email": text})
}

type triggerResponse struct {
	Success bool              `json:"success"`
	Data    map[string]any    `json:"data,omitempty"`
	Logs    []domain.LogEvent `json:"logs"`
}

func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	linkedinURL := r.URL.Query().Get("linkedin_url")
	if linkedinURL == "" {
		writeJSON(w, http.StatusBadRequest, triggerResponse{
			Success: false,
			Logs: []domain.LogEvent{
				{Message: "LinkedIn URL is required", Kind: domain.EventError},
			},
		})
		return
	}

	// Clients that accept an event stream get the pipeline's live log feed
	// instead of the one-shot acknowledgement.
	if r.Header.Get("Accept") == "text/event-stream" {
		s.relayProfileStream(w, r, linkedinURL)
		return
	}

	result, err := s.pipeline.ProcessProfile(r.Context(), linkedinURL)
	if err != nil {
		s.logger.Warn("profile trigger failed", zap.String("linkedin_url", linkedinURL), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, triggerResponse{
			Success: false,
			Logs: []domain.LogEvent{
				{Message: "Failed to reach enrichment pipeline", Kind: domain.EventError},
			},
		})
		return
	}

	outcome := domain.LogEvent{Message: "Profile processing initiated successfully", Kind: domain.EventSuccess}
	if !result.OK {
		outcome = domain.LogEvent{Message: "Failed to process profile", Kind: domain.EventError}
	}

	writeJSON(w, result.StatusCode, triggerResponse{
		Success: result.OK,
		Data:    result.Data,
		Logs: []domain.LogEvent{
			{Message: fmt.Sprintf("Request sent to enrichment pipeline for: %s", linkedinURL), Kind: domain.EventInfo},
			outcome,
		},
	})
}

func (s *Server) relayProfileStream(w http.ResponseWriter, r *http.Request, linkedinURL string) {
	sink, err := newSSESink(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternalError, "streaming not supported")
		return
	}

	open := func(ctx context.Context) (io.ReadCloser, int, error) {
		return s.pipeline.OpenProfileStream(ctx, linkedinURL)
	}

	if err := s.relay.Run(r.Context(), open, sink); err != nil {
		s.logger.Warn("profile enrichment relay ended with error",
			zap.String("linkedin_url", linkedinURL), zap.Error(err))
	}
}

type updateContactsRequest struct {
	BatchSize     int `json:"batchSize"`
	MaxConcurrent int `json:"maxConcurrent"`
}

func (s *Server) handleUpdateContacts(w http.ResponseWriter, r *http.Request) {
	req := updateContactsRequest{BatchSize: defaultBatchSize, MaxConcurrent: defaultMaxConcurrent}
	// An empty body means defaults; only a malformed body is rejected.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.BatchSize <= 0 {
		req.BatchSize = defaultBatchSize
	}
	if req.MaxConcurrent <= 0 {
		req.MaxConcurrent = defaultMaxConcurrent
	}

	sink, err := newSSESink(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternalError, "streaming not supported")
		return
	}

	open := func(ctx context.Context) (io.ReadCloser, int, error) {
		return s.pipeline.OpenBulkStream(ctx, req.BatchSize, req.MaxConcurrent)
	}

	if err := s.relay.Run(r.Context(), open, sink); err != nil {
		// The stream is already committed; the failure went out as a terminal
		// event and is only logged here.
		s.logger.Warn("bulk enrichment relay ended with error", zap.Error(err))
	}
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	info, err := s.health.Debug(r.Context())
	if err != nil {
		s.logger.Error("index debug failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "Failed to connect to vector index",
		})
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuery,
		domain.ErrInvalidRequest,
		domain.ErrMissingProfileURL,
		domain.ErrEmbeddingProviderError,
		domain.ErrVectorIndexUnavailable,
		domain.ErrPipelineUnavailable,
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
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
