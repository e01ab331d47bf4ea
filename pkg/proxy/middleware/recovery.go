package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"styx-hq/charon/pkg/proxy/types"
	"styx-hq/charon/pkg/relay"
)

// RecoveryMiddleware recovers from panics in HTTP handlers and answers with
// a 500 INTERNAL_ERROR body. The panic value and stack trace are logged;
// neither reaches the client.
//
// If the response has already committed to a stream, the status line cannot
// change anymore and the connection simply ends; the client sees a broken
// stream rather than a forged error frame from a handler in an unknown state.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				requestID := GetRequestID(r.Context())
				stack := debug.Stack()

				slog.ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(stack),
				)

				body := types.NewChatError(
					string(relay.KindInternal),
					"An internal error occurred. Please try again later.",
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(body)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
