// Package chi exposes question answering over a JSON HTTP API.
package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	domanswer "github.com/kailas-cloud/docqa/internal/domain/answer"
	domchunk "github.com/kailas-cloud/docqa/internal/domain/chunk"
	domretrieval "github.com/kailas-cloud/docqa/internal/domain/retrieval"
	domusage "github.com/kailas-cloud/docqa/internal/domain/usage"
	logpkg "github.com/kailas-cloud/docqa/internal/logger"
	"github.com/kailas-cloud/docqa/internal/metrics"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	qauc "github.com/kailas-cloud/docqa/internal/usecase/qa"
	usageuc "github.com/kailas-cloud/docqa/internal/usecase/usage"
)

// maxBodyBytes bounds request bodies; answers with contexts are the largest.
const maxBodyBytes = 1 << 20

// ChunkCounter reports the size of the vector index.
type ChunkCounter interface {
	Count(ctx context.Context) (int, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the docqa HTTP API.
type Server struct {
	qa            *qauc.Service
	chunks        ChunkCounter
	usage         *usageuc.Service
	health        *healthuc.Service
	collection    string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	qa *qauc.Service,
	chunks ChunkCounter,
	usage *usageuc.Service,
	health *healthuc.Service,
	collection string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		qa:         qa,
		chunks:     chunks,
		usage:      usage,
		health:     health,
		collection: collection,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeVectorDimMismatch),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, codeEmbeddingQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, codeGenerationFailed),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, codeIndexUnavailable),
	}
	return s
}

// Routes builds the router with the full middleware stack.
func (s *Server) Routes(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Post("/ask", s.Ask)
	r.Post("/evaluate", s.Evaluate)
	r.Get("/stats", s.Stats)
	r.Get("/usage", s.GetUsage)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})
	return r
}

// Ask handles POST /ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "question is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	out, err := s.qa.Ask(ctx, req.Question, req.Evaluate)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := askResponse{
		Question: out.Answer.Question(),
		Answer:   out.Answer.Text(),
		Model:    out.Answer.Model(),
		Sources:  sourcesToDTO(out.Answer.Sources()),
	}
	if out.Evaluated {
		ev := scoreToDTO(out.Score, s.qa.Threshold())
		resp.Evaluation = &ev
	}
	writeJSON(w, http.StatusOK, resp)
}

// Evaluate handles POST /evaluate.
func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.Answer) == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "question and answer are required")
		return
	}
	if !s.qa.CanEvaluate() {
		writeError(w, http.StatusNotImplemented, codeEvaluationDisabled, "evaluation is disabled")
		return
	}

	matches := make([]domretrieval.Match, len(req.Contexts))
	for i, c := range req.Contexts {
		matches[i] = domretrieval.Match{Chunk: domchunk.New(c, "", "", 0, 0)}
	}
	ans := domanswer.New(req.Question, req.Answer, domretrieval.NewResult(matches, len(matches)), "")

	writeJSON(w, http.StatusOK, scoreToDTO(s.qa.Evaluate(r.Context(), ans), s.qa.Threshold()))
}

// Stats handles GET /stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	n, err := s.chunks.Count(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Collection: s.collection, Chunks: n})
}

// GetUsage handles GET /usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	report := s.usage.GetReport(r.Context(), domusage.ParsePeriod(r.URL.Query().Get("period")))

	writeJSON(w, http.StatusOK, usageResponse{
		Period:          string(report.Period()),
		PeriodStartAt:   time.UnixMilli(report.PeriodStart()).UTC(),
		PeriodEndAt:     time.UnixMilli(report.PeriodEnd()).UTC(),
		TokensLimit:     report.TokensLimit(),
		TokensUsed:      report.TokensUsed(),
		TokensRemaining: report.TokensRemaining(),
		IsExhausted:     report.Exhausted(),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(r.Context())
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
