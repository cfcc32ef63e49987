// Package api provides the read-only admin HTTP API.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goclaw/slotbus/config"
	"github.com/goclaw/slotbus/pkg/api/handlers"
	"github.com/goclaw/slotbus/pkg/api/middleware"
	"github.com/goclaw/slotbus/pkg/api/response"
	"github.com/goclaw/slotbus/pkg/logger"
)

const defaultMetricsPath = "/metrics"

// Handlers holds all HTTP handlers.
type Handlers struct {
	// Health handles liveness, readiness and version endpoints
	Health *handlers.HealthHandler

	// Registry handles signal and worker pool introspection
	Registry *handlers.RegistryHandler

	// WebSocket streams diagnostics reports
	WebSocket *handlers.WebSocketHandler

	// Metrics is the optional metrics recorder
	Metrics middleware.MetricsRecorder

	// MetricsHandler optionally serves the Prometheus scrape endpoint on
	// MetricsPath
	MetricsHandler http.Handler
	MetricsPath    string
}

func (h *Handlers) metricsPath() string {
	if h.MetricsPath == "" {
		return defaultMetricsPath
	}
	return h.MetricsPath
}

// NewRouter creates a new chi router with middleware and routes.
func NewRouter(cfg config.AdminConfig, log logger.Logger, h *Handlers) chi.Router {
	if h == nil {
		h = &Handlers{}
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	if h.Metrics != nil {
		r.Use(middleware.Metrics(h.Metrics, h.metricsPath()))
	}
	r.Use(middleware.Tracing(middleware.DefaultTracingOptions()))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, response.ErrCodeNotFound,
			"resource not found", middleware.GetRequestID(r.Context()))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, response.ErrCodeMethodNotAllowed,
			"method not allowed", middleware.GetRequestID(r.Context()))
	})

	RegisterRoutes(r, h)

	return r
}

// RegisterRoutes registers all admin routes.
func RegisterRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		if h.Registry != nil {
			r.Get("/signals", h.Registry.ListSignals)
			r.Get("/signals/{name}", h.Registry.GetSignal)
			r.Get("/pool", h.Registry.Pool)
		}
	})

	// Probes and status are not versioned
	if h.Health != nil {
		r.Get("/health", h.Health.Health)
		r.Get("/ready", h.Health.Ready)
		r.Get("/version", h.Health.Version)
	}
	if h.Registry != nil {
		r.Get("/status", h.Registry.Status)
	}

	if h.WebSocket != nil {
		r.Get("/ws/diagnostics", h.WebSocket.ServeHTTP)
	}

	if h.MetricsHandler != nil {
		r.Method(http.MethodGet, h.metricsPath(), h.MetricsHandler)
	}
}
