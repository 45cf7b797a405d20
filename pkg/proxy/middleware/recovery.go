package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"harvest-hq/gateway/pkg/proxy/types"
)

// RecoveryMiddleware turns a handler panic into a 500 JSON error. The stack
// is logged but never sent to the client. When a stream is already in
// flight the status line is gone, so only the log entry is written.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := wrapWriter(w)
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			slog.ErrorContext(r.Context(), "panic in handler",
				"error", err,
				"request_id", GetRequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			if tw.committed {
				return
			}

			errResp := types.NewServerError("An internal error occurred. Please try again later.")
			tw.Header().Set("Content-Type", "application/json")
			tw.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(tw).Encode(errResp)
		}()

		next.ServeHTTP(tw, r)
	})
}
