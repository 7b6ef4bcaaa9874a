package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
	"github.com/kailas-cloud/skills-handbook/internal/domain/hook"
	"github.com/kailas-cloud/skills-handbook/internal/logger"
	healthuc "github.com/kailas-cloud/skills-handbook/internal/usecase/health"
)

// HookPath is where the host gateway posts before-request hook invocations.
const HookPath = "/v1/hooks/handbook"

const (
	healthPath  = "/health"
	metricsPath = "/metrics"

	headerEmbeddingTokens = "X-Embedding-Tokens"
)

// maxHookBodyBytes bounds an invocation; it carries the full chat request.
const maxHookBodyBytes = 8 << 20

// Error codes returned in {code, message} bodies.
const (
	codeBadRequest       = "bad_request"
	codeNotFound         = "not_found"
	codeMethodNotAllowed = "method_not_allowed"
	codeInternalError    = "internal_error"
)

// HookRunner runs the retrieval pipeline for one invocation.
type HookRunner interface {
	BeforeRequest(ctx context.Context, inv hook.Invocation) hook.Result
}

// HealthChecker aggregates dependency probes.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the hook endpoint, health and metrics.
type Server struct {
	hooks  HookRunner
	health HealthChecker
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(hooks HookRunner, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{hooks: hooks, health: health, logger: logger}
}

// errorResponse is the body of every non-hook error.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Post(HookPath, s.RunHook)
	r.Get(healthPath, s.HealthCheck)
	r.Handle(metricsPath, promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})
}

// RunHook handles POST /v1/hooks/handbook.
// Pipeline failures travel inside a 200 response; only an unreadable invocation is a 400.
func (s *Server) RunHook(w http.ResponseWriter, r *http.Request) {
	var inv hook.Invocation
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxHookBodyBytes))
	if err := dec.Decode(&inv); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeBadRequest, "invocation body too large")
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid invocation body: "+err.Error())
		return
	}

	ctx, usage := domain.WithUsage(r.Context())
	res := s.hooks.BeforeRequest(ctx, inv)

	if res.Error != nil {
		logger.FromContext(ctx, s.logger).Info("hook reported error",
			zap.String("event_type", string(inv.EventType)),
			zap.String("request_type", string(inv.Context.RequestType)),
			zap.String("error", res.Error.Message),
		)
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, res)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: report.Status,
		Checks: report.Checks,
	})
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Calls() > 0 {
		w.Header().Set(headerEmbeddingTokens, strconv.Itoa(usage.Tokens()))
	}
}

// writeJSON leaves <, > and & unescaped so injected memory tags stay readable in the body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
