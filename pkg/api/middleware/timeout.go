package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const timeoutBody = `{"error":{"code":"SERVICE_UNAVAILABLE","message":"request timeout"}}`

// Timeout returns a middleware that bounds request handling. Websocket
// upgrades are long-lived and pass through untouched. A zero timeout
// disables the middleware.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		bounded := http.TimeoutHandler(next, timeout, timeoutBody)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if websocket.IsWebSocketUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}
			bounded.ServeHTTP(w, r)
		})
	}
}
