package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sqlgym/sqlgym/pkg/api"
	"github.com/sqlgym/sqlgym/pkg/generator"
	"github.com/sqlgym/sqlgym/pkg/observability"
	"github.com/sqlgym/sqlgym/pkg/ratelimit"
	"github.com/sqlgym/sqlgym/pkg/sandbox"
	"github.com/sqlgym/sqlgym/pkg/session"
)

// SessionService is the slice of the session manager the handlers need.
type SessionService interface {
	Generate(ctx context.Context, params generator.Params) (*session.Session, error)
	Check(ctx context.Context, id, candidateSQL string) (*api.CheckOutcome, error)
	RevealHint(ctx context.Context, id string) (int, []string, error)
	Delete(ctx context.Context, id string) error
	Get(id string) (*session.Session, error)
}

// Executor runs ad-hoc SQL for the scratchpad endpoint.
type Executor interface {
	Execute(ctx context.Context, namespace, stmt string, opts sandbox.ExecOptions) (*api.ExecutionResult, error)
}

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Availability reports model backend reachability for the health endpoint.
type Availability interface {
	Available(ctx context.Context) error
}

// Handler implements the practice HTTP API.
type Handler struct {
	sessions SessionService
	executor Executor
	db       Pinger
	backend  Availability
	limiter  ratelimit.Limiter
	validate api.ValidationConfig
	logger   *slog.Logger
}

// HandlerConfig wires the Handler's collaborators. Limiter may be nil
// to disable rate limiting; DB and Backend may be nil to skip their
// health checks.
type HandlerConfig struct {
	Sessions SessionService
	Executor Executor
	DB       Pinger
	Backend  Availability
	Limiter  ratelimit.Limiter
	Validate api.ValidationConfig
	Logger   *slog.Logger
}

// NewHandler creates the practice API handler.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	validate := cfg.Validate
	if validate == (api.ValidationConfig{}) {
		validate = api.DefaultValidationConfig()
	}
	return &Handler{
		sessions: cfg.Sessions,
		executor: cfg.Executor,
		db:       cfg.DB,
		backend:  cfg.Backend,
		limiter:  cfg.Limiter,
		validate: validate,
		logger:   logger,
	}
}

// Generate creates a practice session from a difficulty and optional domain.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req api.GenerateRequest
	if apiErr := decodeJSON(r, &req); apiErr != nil {
		WriteAPIError(w, apiErr)
		return
	}
	if apiErr := api.ValidateGenerateRequest(&req, h.validate); apiErr != nil {
		WriteAPIError(w, apiErr)
		return
	}
	if apiErr := h.admit(r); apiErr != nil {
		WriteAPIError(w, apiErr)
		return
	}

	h.createSession(w, r, generator.Params{
		Difficulty: req.Difficulty.OrDefault(),
		Domain:     req.Domain,
	})
}

// GenerateCustom creates a practice session around a learner-supplied topic.
func (h *Handler) GenerateCustom(w http.ResponseWriter, r *http.Request) {
	var req api.GenerateCustomRequest
	if apiErr := decodeJSON(r, &req); apiErr != nil {
		WriteAPIError(w, apiErr)
		return
	}
	if apiErr := api.ValidateGenerateCustomRequest(&req, h.validate); apiErr != nil {
		WriteAPIError(w, apiErr)
		return
	}
	if apiErr := h.admit(r); apiErr != nil {
		WriteAPIError(w, apiErr)
		return
	}

	h.createSession(w, r, generator.Params{
		Difficulty:   req.Difficulty.OrDefault(),
		CustomPrompt: req.Prompt,
	})
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request, params generator.Params) {
	s, err := h.sessions.Generate(r.Context(), params)
	if err != nil {
		h.logger.Error("generation failed",
			slog.String("difficulty", string(params.Difficulty)),
			slog.String("error", err.Error()))
		WriteError(w, err)
		return
	}

	h.logger.Info("session created",
		slog.String("session_id", s.ID),
		slog.String("namespace", s.Namespace),
		slog.String("difficulty", string(s.Question.Difficulty)))
	WriteJSON(w, http.StatusOK, s.Response())
}

// Check verifies a learner's SQL against the session's expected results.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req api.CheckRequest
	if apiErr := decodeJSON(r, &req); apiErr != nil {
		WriteAPIError(w, apiErr)
		return
	}
	if apiErr := api.ValidateCheckRequest(&req, h.validate); apiErr != nil {
		WriteAPIError(w, apiErr)
		return
	}

	outcome, err := h.sessions.Check(r.Context(), req.SessionID, req.SQL)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, outcome)
}

// Hint reveals the next hint and returns all hints revealed so far.
func (h *Handler) Hint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if !api.ValidateSessionID(id) {
		WriteAPIError(w, api.NewInvalidRequestError("session_id",
			"malformed session ID"))
		return
	}

	s, err := h.sessions.Get(id)
	if err != nil {
		WriteError(w, err)
		return
	}
	total := len(s.Question.Hints)

	revealed, hints, err := h.sessions.RevealHint(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, api.HintResponse{
		Hints:         hints,
		RevealedCount: revealed,
		TotalHints:    total,
	})
}

// DeleteSession tears a session down. Idempotent.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if !api.ValidateSessionID(id) {
		WriteAPIError(w, api.NewInvalidRequestError("session_id",
			"malformed session ID"))
		return
	}

	if err := h.sessions.Delete(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, api.DeleteResponse{SessionID: id, Deleted: true})
}

// scratchBlockedPrefixes are statement types refused outside a practice
// namespace, where the scratchpad shares the database's default schema.
var scratchBlockedPrefixes = []string{
	"DROP", "TRUNCATE", "DELETE", "UPDATE", "INSERT",
	"ALTER", "CREATE", "GRANT", "REVOKE",
}

// Execute runs ad-hoc SQL. Inside a valid practice namespace any
// statement is allowed (it is the learner's own sandbox); without a
// namespace only read statements pass.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	var req api.ExecuteRequest
	if apiErr := decodeJSON(r, &req); apiErr != nil {
		WriteAPIError(w, apiErr)
		return
	}
	if apiErr := api.ValidateExecuteRequest(&req, h.validate); apiErr != nil {
		WriteAPIError(w, apiErr)
		return
	}
	if req.Namespace == "" {
		if apiErr := guardScratchStatement(req.SQL); apiErr != nil {
			WriteAPIError(w, apiErr)
			return
		}
	}

	result, err := h.executor.Execute(r.Context(), req.Namespace, req.SQL, sandbox.ExecOptions{})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func guardScratchStatement(sql string) *api.APIError {
	head := strings.ToUpper(strings.TrimSpace(sql))
	for _, prefix := range scratchBlockedPrefixes {
		if strings.HasPrefix(head, prefix) {
			return api.NewInvalidRequestError("sql",
				prefix+" statements are not allowed outside a practice namespace")
		}
	}
	return nil
}

// Healthz reports database and model backend reachability. Any failing
// check degrades the response to 503 so orchestrators stop routing here.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}
	if h.backend != nil {
		if err := h.backend.Available(r.Context()); err != nil {
			checks["generator"] = err.Error()
			healthy = false
		} else {
			checks["generator"] = "ok"
		}
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, map[string]any{"status": status, "checks": checks})
}

// admit applies the generation rate limit keyed by caller identity.
func (h *Handler) admit(r *http.Request) *api.APIError {
	if h.limiter == nil {
		return nil
	}
	if err := h.limiter.Allow(r.Context(), clientIdentity(r)); err != nil {
		observability.RateLimitRejectedTotal.Inc()
		return api.NewRateLimitedError("generation rate limit exceeded, retry later")
	}
	return nil
}

// clientIdentity keys the rate limiter: the X-Client-ID header when a
// client sends one, else the remote host.
func clientIdentity(r *http.Request) string {
	if id := r.Header.Get("X-Client-ID"); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeJSON(r *http.Request, v any) *api.APIError {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return api.NewInvalidRequestError("body", "malformed JSON request body")
	}
	return nil
}
