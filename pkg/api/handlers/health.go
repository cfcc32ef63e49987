// Package handlers provides the admin API HTTP handlers.
package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/goclaw/slotbus/pkg/api/response"
	"github.com/goclaw/slotbus/pkg/version"
)

const defaultCheckTimeout = 2 * time.Second

// HealthChecker reports whether the dispatch core accepts work.
type HealthChecker interface {
	Healthy() bool
}

// CheckFunc is a readiness dependency check, such as a Redis ping.
type CheckFunc func(ctx context.Context) error

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	core    HealthChecker
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(core HealthChecker) *HealthHandler {
	return &HealthHandler{
		core:    core,
		timeout: defaultCheckTimeout,
		checks:  make(map[string]CheckFunc),
	}
}

// AddCheck registers a named readiness check. A check with the same name is
// replaced.
func (h *HealthHandler) AddCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Health handles the /health endpoint (liveness probe).
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.core.Healthy() {
		response.JSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
		return
	}
	response.JSON(w, http.StatusServiceUnavailable, map[string]string{
		"status": "unhealthy",
	})
}

// ReadyResponse is the body of the /ready endpoint.
type ReadyResponse struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Ready handles the /ready endpoint (readiness probe). The registry must be
// open and every registered check must pass.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Ready: h.core.Healthy()}

	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make([]CheckFunc, len(names))
	for i, name := range names {
		checks[i] = h.checks[name]
	}
	h.mu.RUnlock()

	if len(names) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		resp.Checks = make(map[string]string, len(names))
		for i, name := range names {
			if err := checks[i](ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Ready = false
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, resp)
}

// Version handles the /version endpoint.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, version.Get())
}
