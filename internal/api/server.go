// Package api provides the admin HTTP server of the reconciler.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ehving/noticesystem-sub000/internal/api/common"
	v1 "github.com/ehving/noticesystem-sub000/internal/api/v1"
	"github.com/ehving/noticesystem-sub000/internal/versions"
)

// ReadinessChecker reports whether the server's dependencies are reachable.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ServerOption configures the admin API server
type ServerOption func(*serverConfig)

type serverConfig struct {
	middlewares []func(http.Handler) http.Handler
	readiness   ReadinessChecker
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithReadiness sets the dependency check behind GET /readiness.
func WithReadiness(rc ReadinessChecker) ServerOption {
	return func(cfg *serverConfig) {
		cfg.readiness = rc
	}
}

// NewServer creates the HTTP router serving the health endpoints at the
// root and the admin API under /api/v1.
func NewServer(routes *v1.Routes, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(cfg.readiness))
	r.Get("/version", versionHandler)
	r.Mount("/api/v1", v1.Router(routes))

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.DebugContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, HealthResponse{Status: StatusHealthy}, http.StatusOK)
}

func readinessHandler(rc ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := ReadinessResponse{Status: StatusReady, CheckedAt: time.Now().UTC()}
		if rc != nil {
			if err := rc.CheckReadiness(r.Context()); err != nil {
				resp.Status = StatusNotReady
				resp.Error = err.Error()
				common.WriteJSONResponse(w, resp, http.StatusServiceUnavailable)
				return
			}
		}
		common.WriteJSONResponse(w, resp, http.StatusOK)
	}
}

func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
