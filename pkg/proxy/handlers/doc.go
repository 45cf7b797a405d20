// Package handlers provides the gateway's HTTP endpoint handlers.
//
//   - POST /api/chat and POST /api/generate: ChatHandler
//   - GET /api/history: HistoryHandler
//
// Liveness and readiness endpoints live in pkg/telemetry/health.
//
// # Request Flow
//
//  1. Read the body (bounded by server.max_request_body_size)
//  2. Validate model and messages
//  3. Hand the request to the forwarder
//  4. Map any error returned before the response started to a JSON body
//
// # Error Format
//
// Errors use the shape Ollama clients already read:
//
//	{"error": "model is required", "type": "invalid_request_error", "param": "model"}
//
// A stream that fails after its first line cannot carry an error body; the
// connection is simply closed and the failure is logged.
package handlers
