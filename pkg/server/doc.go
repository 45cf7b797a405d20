// Package server assembles the gateway's HTTP surface.
//
// # Routes
//
//	POST /api/chat       forwarded to the backend chat endpoint
//	POST /api/generate   forwarded to the backend generate endpoint
//	GET  /api/history    recent persisted turns, newest first
//	GET  /health         liveness probe
//	GET  /ready          readiness probe (backend and history store)
//	GET  /version        build information
//	GET  /metrics        Prometheus exposition
//
// The probe and metrics paths come from configuration and can be disabled.
//
// # Middleware
//
// Every request passes through Recovery, RequestID, Logging and CORS, in
// that order from the outside in. API routes additionally get metrics and
// a tracing span. Only /api/history has a request timeout; chat routes
// stream until the model finishes or the client leaves.
//
// # Lifecycle
//
//	srv := server.NewServer(cfg, server.Dependencies{...})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start blocks until ctx is cancelled or SIGINT/SIGTERM arrives, then
// drains in-flight requests for up to shutdown_timeout. Callers close the
// history recorder and store after Start returns, so turns from requests
// that finished during the drain are still written.
package server
