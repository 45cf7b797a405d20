// Package metrics exports the gateway's Prometheus metrics.
//
// # Metrics
//
// All names carry the configured namespace and subsystem prefix
// (harvest_gateway_ by default):
//
//   - http_requests_total{route,method,code}
//   - http_request_duration_seconds{route,method}
//   - backend_requests_total{endpoint,code}
//   - backend_request_duration_seconds{endpoint}
//   - streams_total{endpoint,outcome}
//   - stream_chunks_total{endpoint}
//   - stream_decode_errors_total{endpoint}
//   - history_writes_total{mode,result}
//   - history_write_duration_seconds{mode}
//   - history_dropped_total{reason}
//   - history_queue_depth
//   - backend_healthy
//
// Labels are drawn from fixed sets (routes, endpoints, outcomes), never from
// request content such as model names.
//
// # Usage
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
package metrics
