// Package api provides the REST API server of the connector lifecycle server.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stacklok/connector-lifecycle-server/internal/api/health"
	v1 "github.com/stacklok/connector-lifecycle-server/internal/api/v1"
	"github.com/stacklok/connector-lifecycle-server/internal/connectors"
	"github.com/stacklok/connector-lifecycle-server/internal/documents"
	"github.com/stacklok/connector-lifecycle-server/internal/jobs"
	"github.com/stacklok/connector-lifecycle-server/internal/service"
)

// ConnectorsPath is the mount point of the custom connector API
const ConnectorsPath = "/api/v1/custom-connectors"

// ProtectedResourcePath serves the OAuth protected resource metadata
const ProtectedResourcePath = "/.well-known/oauth-protected-resource"

// Services groups the backends served by the API
type Services struct {
	Connectors connectors.Registry
	Jobs       jobs.Ledger
	Documents  documents.Ledger
	Readiness  health.ReadinessChecker
}

// ServerOption configures the API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	middlewares  []func(http.Handler) http.Handler
	defaultScope service.Scope
	authInfo     http.Handler
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithDefaultScope sets the tenant of requests that carry no scope header
func WithDefaultScope(scope service.Scope) ServerOption {
	return func(cfg *serverConfig) {
		cfg.defaultScope = scope
	}
}

// WithAuthInfoHandler serves h at ProtectedResourcePath
func WithAuthInfoHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.authInfo = h
	}
}

// NewServer creates and configures the HTTP router with the given services and options
func NewServer(svc Services, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{
		middlewares: []func(http.Handler) http.Handler{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	if cfg.authInfo != nil {
		r.Method(http.MethodGet, ProtectedResourcePath, cfg.authInfo)
	}
	r.Mount("/", health.Router(svc.Readiness))
	r.Mount(ConnectorsPath, v1.Router(svc.Connectors, svc.Jobs, svc.Documents, cfg.defaultScope))

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
