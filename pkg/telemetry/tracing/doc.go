// Package tracing wires OpenTelemetry into the gateway.
//
// When enabled, spans are exported over OTLP/gRPC. Each chat request gets a
// server span from Middleware, a forwarder span, and the outgoing backend
// request carries the W3C traceparent header, so a trace covers the client,
// the gateway and the model server.
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: "otel-collector:4317"
//	    sampler: ratio
//	    sample_ratio: 0.1
//
// When disabled, the propagator is still installed but spans are noops.
package tracing
