// Package backend is the HTTP client for the upstream chat service.
//
// The client never retries and sets no overall request timeout: a stream may
// legitimately run for minutes. Only connection setup and, optionally, the
// wait for response headers are bounded. Cancelling the request context
// aborts the upstream call, which is how client disconnects propagate.
//
// Non-2xx answers are returned as *types.BackendError carrying the backend's
// status and body. Transport failures carry status 0.
package backend
