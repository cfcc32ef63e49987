package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MetricsRecorder records admin API request metrics.
type MetricsRecorder interface {
	RecordHTTPRequest(method, route, status string, duration time.Duration)
	IncInFlight()
	DecInFlight()
}

// Metrics returns a middleware that records HTTP metrics. Requests are
// labelled by chi route pattern so path parameters do not explode
// cardinality. The metrics endpoint itself is not recorded.
func Metrics(recorder MetricsRecorder, metricsPath string) func(http.Handler) http.Handler {
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, metricsPath) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			recorder.IncInFlight()
			defer recorder.DecInFlight()

			wrapped := wrapWriter(w)
			record := func(status int) {
				recorder.RecordHTTPRequest(r.Method, metricsRoute(r), strconv.Itoa(status), time.Since(start))
			}

			defer func() {
				if err := recover(); err != nil {
					record(http.StatusInternalServerError)
					panic(err)
				}
			}()

			next.ServeHTTP(wrapped, r)
			record(wrapped.statusCode)
		})
	}
}

// metricsRoute prefers the matched route pattern and falls back to a
// normalized path for unmatched requests.
func metricsRoute(r *http.Request) string {
	if pattern := matchedPattern(r); pattern != "" {
		return pattern
	}
	return normalizePath(r.URL.Path)
}

// normalizePath replaces UUIDs and numeric IDs with placeholders.
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if len(part) == 36 && strings.Count(part, "-") == 4 {
			parts[i] = ":id"
			continue
		}
		if _, err := strconv.Atoi(part); err == nil && len(part) > 0 {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
