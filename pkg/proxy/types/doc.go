// Package types defines the wire types of the Ollama-style chat protocol that
// the gateway forwards, plus the error taxonomy shared by the proxy packages.
//
// # Core Types
//
//   - ChatMessage: one message of a conversation
//   - ChatRequest: an inbound /api/chat or /api/generate body. The raw bytes
//     are kept so the backend receives exactly what the client sent.
//   - ProtocolChunk: one NDJSON line of a streamed backend response
//   - ChatResponse: a non-streaming backend response
//
// Only the fields the gateway needs are decoded. Everything else in a request
// or response is opaque and passes through untouched.
//
// # Errors
//
//   - ValidationError: the request is missing model or messages (400)
//   - BackendError: the backend was unreachable or answered non-2xx
//   - InternalError: anything else (500, generic message)
//
// ErrorResponse is the JSON body written for all of them. Its "error" field is
// a plain string so Ollama clients can read it unchanged.
package types
