package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goclaw/slotbus/config"
	"github.com/goclaw/slotbus/pkg/api/response"
	"github.com/goclaw/slotbus/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when missing", "", false},
		{"propagated from header", "req-123", true},
		{"replaced when oversized", strings.Repeat("x", maxRequestIDLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			require.NotEmpty(t, seen)
			assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
			if tt.keep {
				assert.Equal(t, tt.incoming, seen)
			} else {
				assert.NotEqual(t, tt.incoming, seen)
				assert.Len(t, seen, 36)
			}
		})
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetRequestID(req.Context()))
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: logger.InfoLevel, Format: "json", Writer: &buf})

	handler := RequestID()(Recovery(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("secret detail")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/signals", nil)
	req.Header.Set(RequestIDHeader, "req-panic")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, response.ErrCodeInternalServer, resp.Error.Code)
	assert.Equal(t, "req-panic", resp.Error.RequestID)
	assert.NotContains(t, resp.Error.Message, "secret detail")

	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "secret detail")
}

func TestRecovery_NoPanic(t *testing.T) {
	handler := Recovery(logger.Nop())(okHandler())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"ok logs at debug", http.StatusOK, "DEBUG"},
		{"client error logs at warn", http.StatusNotFound, "WARN"},
		{"server error logs at error", http.StatusServiceUnavailable, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := logger.New(&logger.Config{Level: logger.DebugLevel, Format: "json", Writer: &buf})

			handler := Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/pool", nil))

			var record map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
			assert.Equal(t, tt.wantLevel, record["level"])
			assert.Equal(t, "HTTP request", record["message"])
			assert.Equal(t, float64(tt.status), record["status"])
			assert.Equal(t, float64(4), record["size"])
			assert.Equal(t, "/api/v1/pool", record["path"])
		})
	}
}

func TestCORS(t *testing.T) {
	cfg := config.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://dashboard.example"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	}
	handler := CORS(cfg)(okHandler())

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/signals", nil)
		req.Header.Set("Origin", "https://dashboard.example")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://dashboard.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("disallowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/signals", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/signals", nil)
		req.Header.Set("Origin", "https://dashboard.example")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("disabled", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://dashboard.example")
		w := httptest.NewRecorder()
		CORS(config.CORSConfig{})(okHandler()).ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestIsOriginAllowed(t *testing.T) {
	assert.True(t, IsOriginAllowed("https://a.example", []string{"*"}))
	assert.True(t, IsOriginAllowed("https://A.example", []string{"https://a.example"}))
	assert.False(t, IsOriginAllowed("https://b.example", []string{"https://a.example"}))
	assert.False(t, IsOriginAllowed("https://a.example", nil))
}

func TestTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
		}
	})

	t.Run("slow handler times out", func(t *testing.T) {
		w := httptest.NewRecorder()
		Timeout(20*time.Millisecond)(slow).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "request timeout")
	})

	t.Run("fast handler passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		Timeout(time.Second)(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
	})

	t.Run("zero disables", func(t *testing.T) {
		h := okHandler()
		assert.NotNil(t, Timeout(0)(h))
	})
}

func TestMiddlewareChain_WebSocketUpgrade(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte("hello"))
	})

	recorder := &mockMetricsRecorder{}
	chain := RequestID()(Logger(logger.Nop())(Metrics(recorder, "/metrics")(Tracing(DefaultTracingOptions())(Timeout(50 * time.Millisecond)(ws)))))
	server := httptest.NewServer(chain)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(msg))
}

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := wrapWriter(rec)
	assert.Same(t, w, wrapWriter(w))

	w.WriteHeader(http.StatusCreated)
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte("abc"))
	w.Flush()

	assert.Equal(t, http.StatusCreated, w.statusCode)
	assert.Equal(t, 3, w.size)
	assert.Same(t, rec, w.Unwrap())

	_, _, err := w.Hijack()
	assert.Error(t, err)
}
