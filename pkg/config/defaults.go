package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress      = "0.0.0.0:11435"
	DefaultReadTimeout        = 30 * time.Second
	DefaultIdleTimeout        = 120 * time.Second
	DefaultShutdownTimeout    = 30 * time.Second
	DefaultRequestTimeout     = 30 * time.Second
	DefaultMaxHeaderBytes     = 1048576  // 1MB
	DefaultMaxRequestBodySize = 10485760 // 10MB
	DefaultCORSMaxAge         = 3600

	// Backend defaults
	DefaultBackendBaseURL             = "http://localhost:11434"
	DefaultBackendChatPath            = "/api/chat"
	DefaultBackendGeneratePath        = "/api/generate"
	DefaultBackendHealthPath          = "/api/version"
	DefaultBackendDialTimeout         = 30 * time.Second
	DefaultBackendMaxIdleConns        = 100
	DefaultBackendMaxIdleConnsPerHost = 10
	DefaultBackendIdleConnTimeout     = 90 * time.Second

	// History defaults
	DefaultHistoryBackend         = "jsonl"
	DefaultHistoryJSONLPath       = "chat_history.jsonl"
	DefaultHistoryJSONLSync       = true
	DefaultHistorySQLitePath      = "chat_history.db"
	DefaultHistorySQLiteDriver    = "sqlite3"
	DefaultHistorySQLiteMaxOpen   = 10
	DefaultHistorySQLiteMaxIdle   = 5
	DefaultHistorySQLiteWALMode   = true
	DefaultHistorySQLiteBusy      = 5 * time.Second
	DefaultHistoryTerminalReason  = "stop"
	DefaultRecorderAsyncBuffer    = 1000
	DefaultRecorderWriteTimeout   = 5 * time.Second
	DefaultRecorderEnqueueTimeout = 5 * time.Second
	DefaultHistoryQueryLimit      = 100
	DefaultHistoryQueryMaxLimit   = 1000
	DefaultRetentionSchedule      = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultLoggingRedactContent = true
	DefaultMetricsEnabled       = true
	DefaultMetricsPath          = "/metrics"
	DefaultMetricsNamespace     = "harvest"
	DefaultMetricsSubsystem     = "gateway"
	DefaultTracingSampler       = "ratio"
	DefaultTracingSampleRatio   = 0.1
	DefaultTracingServiceName   = "harvest-gateway"
	DefaultTracingInsecure      = true
	DefaultTracingTimeout       = 10 * time.Second
	DefaultHealthEnabled        = true
	DefaultLivenessPath         = "/health"
	DefaultReadinessPath        = "/ready"
	DefaultHealthCheckTimeout   = 5 * time.Second

	// Reload defaults
	DefaultReloadDebounce = 250 * time.Millisecond
)

// DefaultRequestDurationBuckets are the request latency histogram buckets.
// Streamed generations are long, so the upper buckets reach two minutes.
var DefaultRequestDurationBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyBoolDefaults(cfg)
	ApplyDefaults(cfg)
	return cfg
}

// applyBoolDefaults seeds booleans whose default is true. It runs before the
// YAML is decoded so that an explicit false in the file still wins.
func applyBoolDefaults(cfg *Config) {
	cfg.History.JSONL.Sync = DefaultHistoryJSONLSync
	cfg.History.SQLite.WALMode = DefaultHistorySQLiteWALMode
	cfg.Telemetry.Logging.RedactContent = DefaultLoggingRedactContent
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Insecure = DefaultTracingInsecure
	cfg.Telemetry.Health.Enabled = DefaultHealthEnabled
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyBackendDefaults(&cfg.Backend)
	applyHistoryDefaults(&cfg.History)
	applyTelemetryDefaults(&cfg.Telemetry)

	if cfg.Reload.Debounce == 0 {
		cfg.Reload.Debounce = DefaultReloadDebounce
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if s.MaxRequestBodySize == 0 {
		s.MaxRequestBodySize = DefaultMaxRequestBodySize
	}

	cors := &s.CORS
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if len(cors.ExposedHeaders) == 0 {
		cors.ExposedHeaders = []string{"X-Request-ID"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}

func applyBackendDefaults(b *BackendConfig) {
	if b.BaseURL == "" {
		b.BaseURL = DefaultBackendBaseURL
	}
	if b.ChatPath == "" {
		b.ChatPath = DefaultBackendChatPath
	}
	if b.GeneratePath == "" {
		b.GeneratePath = DefaultBackendGeneratePath
	}
	if b.HealthPath == "" {
		b.HealthPath = DefaultBackendHealthPath
	}
	if b.DialTimeout == 0 {
		b.DialTimeout = DefaultBackendDialTimeout
	}
	if b.MaxIdleConns == 0 {
		b.MaxIdleConns = DefaultBackendMaxIdleConns
	}
	if b.MaxIdleConnsPerHost == 0 {
		b.MaxIdleConnsPerHost = DefaultBackendMaxIdleConnsPerHost
	}
	if b.IdleConnTimeout == 0 {
		b.IdleConnTimeout = DefaultBackendIdleConnTimeout
	}
}

func applyHistoryDefaults(h *HistoryConfig) {
	if h.Backend == "" {
		h.Backend = DefaultHistoryBackend
	}
	if h.JSONL.Path == "" {
		h.JSONL.Path = DefaultHistoryJSONLPath
	}
	if h.SQLite.Path == "" {
		h.SQLite.Path = DefaultHistorySQLitePath
	}
	if h.SQLite.Driver == "" {
		h.SQLite.Driver = DefaultHistorySQLiteDriver
	}
	if h.SQLite.MaxOpenConns == 0 {
		h.SQLite.MaxOpenConns = DefaultHistorySQLiteMaxOpen
	}
	if h.SQLite.MaxIdleConns == 0 {
		h.SQLite.MaxIdleConns = DefaultHistorySQLiteMaxIdle
	}
	if h.SQLite.BusyTimeout == 0 {
		h.SQLite.BusyTimeout = DefaultHistorySQLiteBusy
	}
	if len(h.TerminalReasons) == 0 {
		h.TerminalReasons = []string{DefaultHistoryTerminalReason}
	}
	if h.Recorder.AsyncBuffer == 0 {
		h.Recorder.AsyncBuffer = DefaultRecorderAsyncBuffer
	}
	if h.Recorder.WriteTimeout == 0 {
		h.Recorder.WriteTimeout = DefaultRecorderWriteTimeout
	}
	if h.Recorder.EnqueueTimeout == 0 {
		h.Recorder.EnqueueTimeout = DefaultRecorderEnqueueTimeout
	}
	if h.Query.DefaultLimit == 0 {
		h.Query.DefaultLimit = DefaultHistoryQueryLimit
	}
	if h.Query.MaxLimit == 0 {
		h.Query.MaxLimit = DefaultHistoryQueryMaxLimit
	}
	if h.Retention.Schedule == "" {
		h.Retention.Schedule = DefaultRetentionSchedule
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.RequestDurationBuckets) == 0 {
		t.Metrics.RequestDurationBuckets = append([]float64(nil), DefaultRequestDurationBuckets...)
	}
	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}
	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultReadinessPath
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
