package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"harvest-hq/gateway/pkg/config"
)

// defaultDurationBuckets cover short history reads up to long generations.
var defaultDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// Collector owns every Prometheus metric the gateway exports. It satisfies
// the metric interfaces of the middleware, forwarder and recorder packages,
// so one value is passed to all of them.
//
// A disabled Collector accepts every call and records nothing.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	backendRequests *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec

	streams            *prometheus.CounterVec
	streamChunks       *prometheus.CounterVec
	streamDecodeErrors *prometheus.CounterVec

	historyWrites   *prometheus.CounterVec
	historyDuration *prometheus.HistogramVec
	historyDropped  *prometheus.CounterVec
	historyQueue    prometheus.Gauge

	backendHealthy prometheus.Gauge
}

// NewCollector registers all metrics on registry, or on a fresh registry
// when nil. Go runtime and process collectors are included.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = config.DefaultMetricsNamespace
	}
	subsystem := cfg.Subsystem
	if subsystem == "" {
		subsystem = config.DefaultMetricsSubsystem
	}
	buckets := cfg.RequestDurationBuckets
	if len(buckets) == 0 {
		buckets = defaultDurationBuckets
	}

	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help}
	}
	histOpts := func(name, help string, b []float64) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: b}
	}

	c := &Collector{
		enabled:  cfg.Enabled,
		registry: registry,

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts(opts(
			"http_requests_total", "HTTP requests by route, method and status code.")),
			[]string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(histOpts(
			"http_request_duration_seconds", "HTTP request duration, including the full stream relay.", buckets),
			[]string{"route", "method"}),

		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts(opts(
			"backend_requests_total", "Requests sent to the chat backend by endpoint and status code.")),
			[]string{"endpoint", "code"}),
		backendDuration: prometheus.NewHistogramVec(histOpts(
			"backend_request_duration_seconds", "Time until the backend returned response headers.", buckets),
			[]string{"endpoint"}),

		streams: prometheus.NewCounterVec(prometheus.CounterOpts(opts(
			"streams_total", "Relayed streams by endpoint and outcome.")),
			[]string{"endpoint", "outcome"}),
		streamChunks: prometheus.NewCounterVec(prometheus.CounterOpts(opts(
			"stream_chunks_total", "NDJSON lines relayed to clients.")),
			[]string{"endpoint"}),
		streamDecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts(opts(
			"stream_decode_errors_total", "Relayed lines that could not be decoded as chunks.")),
			[]string{"endpoint"}),

		historyWrites: prometheus.NewCounterVec(prometheus.CounterOpts(opts(
			"history_writes_total", "History writes by mode (sync, async) and result.")),
			[]string{"mode", "result"}),
		historyDuration: prometheus.NewHistogramVec(histOpts(
			"history_write_duration_seconds", "History write latency.", prometheus.DefBuckets),
			[]string{"mode"}),
		historyDropped: prometheus.NewCounterVec(prometheus.CounterOpts(opts(
			"history_dropped_total", "Turns dropped before reaching the history store.")),
			[]string{"reason"}),
		historyQueue: prometheus.NewGauge(prometheus.GaugeOpts(opts(
			"history_queue_depth", "Turns waiting in the async history queue."))),

		backendHealthy: prometheus.NewGauge(prometheus.GaugeOpts(opts(
			"backend_healthy", "1 when the chat backend passed its last health check."))),
	}

	registry.MustRegister(
		c.httpRequests, c.httpDuration,
		c.backendRequests, c.backendDuration,
		c.streams, c.streamChunks, c.streamDecodeErrors,
		c.historyWrites, c.historyDuration, c.historyDropped, c.historyQueue,
		c.backendHealthy,
	)
	return c
}

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool {
	return c.enabled
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(route, method string, status int, d time.Duration) {
	if !c.enabled {
		return
	}
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// RecordBackendRequest records one backend round trip. Status 0 means the
// backend was unreachable.
func (c *Collector) RecordBackendRequest(endpoint string, status int, d time.Duration) {
	if !c.enabled {
		return
	}
	code := strconv.Itoa(status)
	if status == 0 {
		code = "unreachable"
	}
	c.backendRequests.WithLabelValues(endpoint, code).Inc()
	c.backendDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordStream records how a relayed stream ended.
func (c *Collector) RecordStream(endpoint, outcome string, chunks, decodeErrors int) {
	if !c.enabled {
		return
	}
	c.streams.WithLabelValues(endpoint, outcome).Inc()
	c.streamChunks.WithLabelValues(endpoint).Add(float64(chunks))
	c.streamDecodeErrors.WithLabelValues(endpoint).Add(float64(decodeErrors))
}

// RecordHistoryWrite records one store write.
func (c *Collector) RecordHistoryWrite(mode, result string, d time.Duration) {
	if !c.enabled {
		return
	}
	c.historyWrites.WithLabelValues(mode, result).Inc()
	c.historyDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// RecordHistoryDropped records a turn that was never written.
func (c *Collector) RecordHistoryDropped(reason string) {
	if !c.enabled {
		return
	}
	c.historyDropped.WithLabelValues(reason).Inc()
}

// SetHistoryQueueDepth updates the async queue gauge.
func (c *Collector) SetHistoryQueueDepth(depth int) {
	if !c.enabled {
		return
	}
	c.historyQueue.Set(float64(depth))
}

// SetBackendHealthy updates the backend health gauge.
func (c *Collector) SetBackendHealthy(healthy bool) {
	if !c.enabled {
		return
	}
	if healthy {
		c.backendHealthy.Set(1)
	} else {
		c.backendHealthy.Set(0)
	}
}
