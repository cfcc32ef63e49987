package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goclaw/slotbus/pkg/api/middleware"
	"github.com/goclaw/slotbus/pkg/api/response"
	"github.com/goclaw/slotbus/pkg/signal"
	"github.com/goclaw/slotbus/pkg/version"
)

func newRegistryRouter(reg RegistryView) http.Handler {
	h := NewRegistryHandler(reg)
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Get("/status", h.Status)
	r.Get("/api/v1/signals", h.ListSignals)
	r.Get("/api/v1/signals/{name}", h.GetSignal)
	r.Get("/api/v1/pool", h.Pool)
	return r
}

func seedRegistry(t *testing.T) *signal.Registry {
	t.Helper()
	reg := newTestRegistry(t)

	tInt := signal.TypeOf[int]()
	_, err := reg.RegisterSignal("order.created", signal.Params(tInt), signal.Void)
	require.NoError(t, err)
	_, err = reg.RegisterSignal("cache.flush", nil, signal.Void)
	require.NoError(t, err)

	_, err = reg.RegisterSlot(noopSlot(), "order.created", signal.Params(tInt), signal.Void, signal.WithPriority(5))
	require.NoError(t, err)
	_, err = reg.RegisterSlot(noopSlot(), "order.created", signal.Params(tInt), signal.Void)
	require.NoError(t, err)
	return reg
}

func TestRegistryHandler_ListSignals(t *testing.T) {
	router := newRegistryRouter(seedRegistry(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/signals", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list SignalList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "cache.flush", list.Signals[0].Name)
	assert.Equal(t, "order.created", list.Signals[1].Name)
	assert.Equal(t, []string{"int"}, list.Signals[1].Params)
	assert.Equal(t, "void", list.Signals[1].Result)
	assert.Equal(t, 2, list.Signals[1].SlotCount)
	assert.Empty(t, list.Signals[1].Slots)
}

func TestRegistryHandler_ListSignalsEmpty(t *testing.T) {
	router := newRegistryRouter(newTestRegistry(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/signals", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"signals":[],"count":0}`, w.Body.String())
}

func TestRegistryHandler_GetSignal(t *testing.T) {
	router := newRegistryRouter(seedRegistry(t))

	t.Run("found", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/signals/order.created", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var info signal.SignalInfo
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
		assert.Equal(t, "order.created", info.Name)
		require.Len(t, info.Slots, 2)

		var withPriority int
		for _, slot := range info.Slots {
			assert.NotEmpty(t, slot.ID)
			if slot.Priority != nil {
				withPriority++
				assert.Equal(t, 5, *slot.Priority)
			}
		}
		assert.Equal(t, 1, withPriority)
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/signals/missing", nil)
		req.Header.Set(middleware.RequestIDHeader, "req-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusNotFound, w.Code)

		var resp response.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, response.ErrCodeNotFound, resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "missing")
		assert.Equal(t, "req-42", resp.Error.RequestID)
	})
}

func TestRegistryHandler_Pool(t *testing.T) {
	reg := seedRegistry(t)
	reg.SetAsyncDispatch(false)
	router := newRegistryRouter(reg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/pool", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status PoolStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.False(t, status.AsyncEnabled)
	assert.True(t, status.Healthy)
	assert.Equal(t, reg.PoolStats().MaxWorkers, status.Stats.MaxWorkers)
	assert.False(t, status.Stats.Closed)
}

func TestRegistryHandler_Status(t *testing.T) {
	reg := seedRegistry(t)
	router := newRegistryRouter(reg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, version.Get(), status.Build)
	assert.Equal(t, 2, status.Signals)
	assert.True(t, status.Pool.AsyncEnabled)

	require.NoError(t, reg.Shutdown(context.Background()))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, 0, status.Signals)
	assert.False(t, status.Pool.Healthy)
	assert.True(t, status.Pool.Stats.Closed)
}
