// Package transport exposes the practice engine over HTTP: a chi
// router, JSON request/response handling, the APIError-to-status
// mapping, and the server lifecycle.
package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sqlgym/sqlgym/pkg/observability"
)

// RouterConfig controls optional router features.
type RouterConfig struct {
	MetricsEnabled bool
	MetricsPath    string
	Logger         *slog.Logger
}

// NewRouter assembles the full HTTP surface around the handler.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(observability.MetricsMiddleware)

	r.Route("/practice", func(r chi.Router) {
		r.Post("/generate", h.Generate)
		r.Post("/generate-custom", h.GenerateCustom)
		r.Post("/check", h.Check)
		r.Get("/hint/{sessionID}", h.Hint)
		r.Delete("/session/{sessionID}", h.DeleteSession)
	})
	r.Post("/sql/execute", h.Execute)
	r.Get("/healthz", h.Healthz)

	if cfg.MetricsEnabled {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, promhttp.Handler())
	}

	return r
}

// requestLogger emits one structured log line per request with the
// chi request ID, method, path, status, and duration.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.LogAttrs(r.Context(), slog.LevelInfo, "request",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
