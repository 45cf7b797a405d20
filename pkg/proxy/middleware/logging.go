package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// LoggingMiddleware writes one line per request once the handler returns.
// For streamed chats that is after the final chunk, so latency_ms is the
// full relay time. 5xx responses log at error and 4xx at warn.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		tw := wrapWriter(w)

		slog.DebugContext(ctx, "request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		next.ServeHTTP(tw, r)

		level := slog.LevelInfo
		switch {
		case tw.status >= 500:
			level = slog.LevelError
		case tw.status >= 400:
			level = slog.LevelWarn
		}

		slog.Log(ctx, level, "request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", tw.status,
			"bytes", tw.size,
			"stream", tw.streamed(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", GetRequestID(ctx),
		)
	})
}
