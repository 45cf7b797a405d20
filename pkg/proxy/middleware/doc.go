// Package middleware provides the HTTP middleware shared by every gateway
// route.
//
// # Middleware Chain
//
// The server wraps the whole mux, outermost first:
//
//	handler = Recovery(RequestID(Logging(CORS(mux))))
//
// and individual API routes additionally get Metrics and, for routes that
// never stream, Timeout:
//
//	route = Metrics(Tracing(Timeout(handler)))
//
// RequestID runs before Logging so the request line carries the ID.
// Timeout is only mounted on routes that never stream. A chat generation
// can legitimately run for minutes, and its lifetime is bounded by the
// client connection instead.
//
// # Request ID
//
// RequestIDMiddleware reuses the client's X-Request-ID when present and
// otherwise generates a UUID v4:
//
//	X-Request-ID: 550e8400-e29b-41d4-a716-446655440000
//
// The ID is stored in the request context, echoed in the response, sent
// to the chat backend and attached to history log lines.
//
// # Streaming
//
// The shared trackingWriter implements Flush and Unwrap, so handlers can
// flush NDJSON lines through http.NewResponseController without knowing
// which middleware sits between them and the connection.
//
// # Logging
//
// LoggingMiddleware writes one structured line per request:
//
//	{
//	  "time": "2026-03-02T10:30:00Z",
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "method": "POST",
//	  "path": "/api/chat",
//	  "status": 200,
//	  "bytes": 4096,
//	  "latency_ms": 1250,
//	  "request_id": "550e8400-e29b-41d4-a716-446655440000"
//	}
//
// # Recovery
//
// RecoveryMiddleware converts panics into a 500 JSON error and logs the
// stack. If the response was already committed, only the log is written.
package middleware
