// Package proxy holds the HTTP plumbing shared by the gateway's handlers:
// request parsing, error mapping and response writing.
//
// The gateway sits between chat clients and an Ollama-compatible backend.
// Requests are forwarded unchanged and responses are relayed byte for byte;
// the only side effect is that completed exchanges are appended to the chat
// history store.
//
// # Architecture
//
//   - types: request, chunk and error data structures
//   - backend: HTTP client for the upstream chat service
//   - relay: line-by-line stream relay with content accumulation
//   - forwarder: one chat turn, from validated request to persisted history
//   - handlers: HTTP handlers for /api/chat, /api/generate and /api/history
//   - middleware: request ID, logging, recovery, CORS and timeouts
//
// # Error Mapping
//
// Every error returned to a client is a JSON object:
//
//	{"error": "model is required", "type": "invalid_request_error", "param": "model"}
//
// HandleError picks the status from the error's type: validation failures
// are 400, backend failures carry the backend's status (502 when it could not
// be reached), and storage and internal failures are 500.
//
// # Streaming
//
// Streams are written with Content-Type text/event-stream even though the
// body is newline-delimited JSON. Clients of the gateway depend on this.
package proxy
