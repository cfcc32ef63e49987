package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goclaw/slotbus/pkg/api/middleware"
	"github.com/goclaw/slotbus/pkg/api/response"
	"github.com/goclaw/slotbus/pkg/signal"
	"github.com/goclaw/slotbus/pkg/version"
	"github.com/goclaw/slotbus/pkg/workerpool"
)

// RegistryView is the read-only registry surface exposed over HTTP.
// *signal.Registry implements it.
type RegistryView interface {
	HealthChecker
	Signals() []signal.SignalInfo
	Describe(name string) (signal.SignalInfo, bool)
	PoolStats() workerpool.Stats
	AsyncDispatch() bool
}

// RegistryHandler serves signal and worker pool introspection.
type RegistryHandler struct {
	registry RegistryView
}

// NewRegistryHandler creates a new registry handler.
func NewRegistryHandler(registry RegistryView) *RegistryHandler {
	return &RegistryHandler{registry: registry}
}

// SignalList is the body of GET /api/v1/signals.
type SignalList struct {
	Signals []signal.SignalInfo `json:"signals"`
	Count   int                 `json:"count"`
}

// PoolStatus is the body of GET /api/v1/pool.
type PoolStatus struct {
	AsyncEnabled bool             `json:"async_enabled"`
	Healthy      bool             `json:"healthy"`
	Stats        workerpool.Stats `json:"stats"`
}

// Status is the body of GET /status.
type Status struct {
	Build   version.BuildInfo `json:"build"`
	Signals int               `json:"signals"`
	Pool    PoolStatus        `json:"pool"`
}

// ListSignals handles GET /api/v1/signals.
func (h *RegistryHandler) ListSignals(w http.ResponseWriter, r *http.Request) {
	signals := h.registry.Signals()
	response.JSON(w, http.StatusOK, SignalList{
		Signals: signals,
		Count:   len(signals),
	})
}

// GetSignal handles GET /api/v1/signals/{name}.
func (h *RegistryHandler) GetSignal(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		response.Error(w, http.StatusBadRequest, response.ErrCodeBadRequest,
			"signal name is required", middleware.GetRequestID(r.Context()))
		return
	}

	info, ok := h.registry.Describe(name)
	if !ok {
		response.Error(w, http.StatusNotFound, response.ErrCodeNotFound,
			"signal "+name+" is not registered", middleware.GetRequestID(r.Context()))
		return
	}
	response.JSON(w, http.StatusOK, info)
}

// Pool handles GET /api/v1/pool.
func (h *RegistryHandler) Pool(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.poolStatus())
}

// Status handles GET /status.
func (h *RegistryHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, Status{
		Build:   version.Get(),
		Signals: len(h.registry.Signals()),
		Pool:    h.poolStatus(),
	})
}

func (h *RegistryHandler) poolStatus() PoolStatus {
	return PoolStatus{
		AsyncEnabled: h.registry.AsyncDispatch(),
		Healthy:      h.registry.Healthy(),
		Stats:        h.registry.PoolStats(),
	}
}
