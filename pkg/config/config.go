package config

import "time"

// Config is the root configuration structure for the harvest gateway.
type Config struct {
	// Server contains the HTTP listener configuration.
	Server ServerConfig `yaml:"server"`

	// Backend describes the upstream chat-completion server.
	Backend BackendConfig `yaml:"backend"`

	// History selects and configures the conversation history store.
	History HistoryConfig `yaml:"history"`

	// Telemetry contains logging, metrics, tracing and health settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Reload controls hot reloading of this file.
	Reload ReloadSettings `yaml:"reload"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "0.0.0.0:11435"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Streams can run for minutes, so zero (no timeout) is the default.
	// Default: 0
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RequestTimeout applies to the non-forwarding endpoints (history, health).
	// Default: 30s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxRequestBodySize limits inbound request bodies in bytes.
	// Default: 10485760 (10MB)
	MaxRequestBodySize int64 `yaml:"max_request_body_size"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins. ["*"] allows all.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	// Default: ["Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers exposed to the client.
	// Default: ["X-Request-ID"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the preflight cache duration in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`

	// AllowCredentials controls Access-Control-Allow-Credentials.
	AllowCredentials bool `yaml:"allow_credentials"`
}

// BackendConfig describes the upstream inference server.
type BackendConfig struct {
	// BaseURL is the backend root URL.
	// Default: "http://localhost:11434"
	BaseURL string `yaml:"base_url"`

	// ChatPath is appended to BaseURL for chat requests.
	// Default: "/api/chat"
	ChatPath string `yaml:"chat_path"`

	// GeneratePath is appended to BaseURL for generate requests.
	// Default: "/api/generate"
	GeneratePath string `yaml:"generate_path"`

	// HealthPath is probed by the readiness check.
	// Default: "/api/version"
	HealthPath string `yaml:"health_path"`

	// DialTimeout bounds TCP connection establishment.
	// Default: 30s
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// ResponseHeaderTimeout bounds the wait for response headers.
	// Zero waits forever; a slow model load is not an error.
	// Default: 0
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout"`

	// MaxIdleConns is the total idle connection pool size.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost is the per-host idle connection pool size.
	// Default: 10
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout closes idle pooled connections.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// HistoryConfig selects the history store and how turns reach it.
type HistoryConfig struct {
	// Backend selects the store.
	// Options: "discard", "jsonl", "sqlite", "memory"
	// Default: "jsonl"
	Backend string `yaml:"backend"`

	// JSONL configures the append-log backend.
	JSONL JSONLConfig `yaml:"jsonl"`

	// SQLite configures the relational backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// TerminalReasons lists the done_reason values that mark a stream as
	// complete. Only completed streams are persisted.
	// Default: ["stop"]
	TerminalReasons []string `yaml:"terminal_reasons"`

	// BestEffortSync makes persistence failures on the non-streaming path
	// non-fatal: the failure is logged and the backend body is still returned.
	// Default: false
	BestEffortSync bool `yaml:"best_effort_sync"`

	// Recorder configures asynchronous persistence for streamed turns.
	Recorder RecorderConfig `yaml:"recorder"`

	// Query configures GET /api/history.
	Query QueryConfig `yaml:"query"`

	// Retention configures scheduled pruning.
	Retention RetentionConfig `yaml:"retention"`
}

// JSONLConfig configures the append-log history backend.
type JSONLConfig struct {
	// Path is the log file location.
	// Default: "chat_history.jsonl"
	Path string `yaml:"path"`

	// Sync calls fsync after every appended record.
	// Default: true
	Sync bool `yaml:"sync"`
}

// SQLiteConfig configures the relational history backend.
type SQLiteConfig struct {
	// Path is the database file location.
	// Default: "chat_history.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite3" (cgo, mattn/go-sqlite3), "sqlite" (pure Go, modernc.org/sqlite)
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig configures the asynchronous history recorder.
type RecorderConfig struct {
	// AsyncBuffer is the number of turns queued before spilling.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds a single store write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// EnqueueTimeout is how long a turn waits for queue space before it is dropped.
	// Default: 5s
	EnqueueTimeout time.Duration `yaml:"enqueue_timeout"`
}

// QueryConfig configures history retrieval.
type QueryConfig struct {
	// DefaultLimit is used when the request has no limit.
	// Default: 100
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit caps the limit parameter.
	// Default: 1000
	MaxLimit int `yaml:"max_limit"`
}

// RetentionConfig configures scheduled pruning of history.
type RetentionConfig struct {
	// Enabled turns on the pruning schedule.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// MaxAgeDays deletes records older than this many days. 0 keeps all.
	MaxAgeDays int `yaml:"max_age_days"`

	// MaxRecords trims the store to this many newest records. 0 is unlimited.
	MaxRecords int64 `yaml:"max_records"`

	// Schedule is a standard five-field cron expression.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// RedactContent masks message content in log entries.
	// Default: true
	RedactContent bool `yaml:"redact_content"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether /metrics is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "harvest"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "gateway"
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets defines histogram buckets in seconds.
	// Default: [0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample when Sampler is "ratio".
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "harvest-gateway"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	// Enabled controls whether health endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the liveness probe path.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the readiness probe path.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds individual component checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

// ReloadSettings controls configuration hot reload.
type ReloadSettings struct {
	// Enabled starts a file watcher on the configuration file.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Debounce is the quiet period before a change is applied.
	// Default: 250ms
	Debounce time.Duration `yaml:"debounce"`
}
