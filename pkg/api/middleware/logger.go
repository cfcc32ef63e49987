// Package middleware provides HTTP middleware for the admin API.
package middleware

import (
	"net/http"
	"time"

	"github.com/goclaw/slotbus/pkg/logger"
)

// Logger returns a middleware that logs HTTP requests. Server errors are
// logged at error level, client errors at warn, everything else at debug
// so probes and scrapes stay quiet.
func Logger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapWriter(w)

			next.ServeHTTP(wrapped, r)

			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"route", routePattern(r),
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"size", wrapped.size,
				"remote_addr", r.RemoteAddr,
				"request_id", GetRequestID(r.Context()),
			}
			switch {
			case wrapped.statusCode >= http.StatusInternalServerError:
				log.ErrorContext(r.Context(), "HTTP request", args...)
			case wrapped.statusCode >= http.StatusBadRequest:
				log.WarnContext(r.Context(), "HTTP request", args...)
			default:
				log.DebugContext(r.Context(), "HTTP request", args...)
			}
		})
	}
}
