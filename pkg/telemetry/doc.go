// Package telemetry groups the gateway's observability packages.
//
//   - logging: slog handler setup, runtime level changes, content redaction
//   - metrics: Prometheus collector for HTTP, backend, stream and history metrics
//   - tracing: OpenTelemetry provider and server span middleware
//   - health: liveness and readiness probes
//
// None of them is required for forwarding; with metrics and tracing
// disabled the gateway still logs through the configured handler.
package telemetry
