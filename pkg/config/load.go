package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envPrefix prefixes every environment override.
const envPrefix = "HARVEST_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML into a Config and applies defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	applyBoolDefaults(cfg)

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides (HARVEST_SECTION_FIELD). A missing file is
// not an error here: the gateway runs on defaults plus environment.
//
// The loading sequence is:
// 1. Load YAML from file (or start from defaults)
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		cfg = Default()
	default:
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set.
// A missing file is ignored.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %q: %w", path, err)
	}
	return nil
}

// envOverrides collects parse failures so a typo in a variable is reported
// instead of silently ignored.
type envOverrides struct {
	errs []FieldError
}

func (o *envOverrides) str(name string, dst *string) {
	if val, ok := os.LookupEnv(envPrefix + name); ok && val != "" {
		*dst = val
	}
}

func (o *envOverrides) list(name string, dst *[]string) {
	val, ok := os.LookupEnv(envPrefix + name)
	if !ok || val == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (o *envOverrides) boolean(name string, dst *bool) {
	val, ok := os.LookupEnv(envPrefix + name)
	if !ok || val == "" {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		o.fail(name, err)
		return
	}
	*dst = b
}

func (o *envOverrides) integer(name string, dst *int) {
	val, ok := os.LookupEnv(envPrefix + name)
	if !ok || val == "" {
		return
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		o.fail(name, err)
		return
	}
	*dst = i
}

func (o *envOverrides) integer64(name string, dst *int64) {
	val, ok := os.LookupEnv(envPrefix + name)
	if !ok || val == "" {
		return
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		o.fail(name, err)
		return
	}
	*dst = i
}

func (o *envOverrides) float(name string, dst *float64) {
	val, ok := os.LookupEnv(envPrefix + name)
	if !ok || val == "" {
		return
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		o.fail(name, err)
		return
	}
	*dst = f
}

func (o *envOverrides) duration(name string, dst *time.Duration) {
	val, ok := os.LookupEnv(envPrefix + name)
	if !ok || val == "" {
		return
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		o.fail(name, err)
		return
	}
	*dst = d
}

func (o *envOverrides) fail(name string, err error) {
	o.errs = append(o.errs, FieldError{
		Field:   envPrefix + name,
		Message: err.Error(),
	})
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	o := &envOverrides{}

	// Server overrides
	o.str("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	o.duration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	o.duration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	o.duration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	o.duration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	o.integer64("SERVER_MAX_REQUEST_BODY_SIZE", &cfg.Server.MaxRequestBodySize)
	o.boolean("SERVER_CORS_ENABLED", &cfg.Server.CORS.Enabled)
	o.list("SERVER_CORS_ALLOWED_ORIGINS", &cfg.Server.CORS.AllowedOrigins)

	// Backend overrides
	o.str("BACKEND_BASE_URL", &cfg.Backend.BaseURL)
	o.duration("BACKEND_DIAL_TIMEOUT", &cfg.Backend.DialTimeout)
	o.duration("BACKEND_RESPONSE_HEADER_TIMEOUT", &cfg.Backend.ResponseHeaderTimeout)

	// History overrides
	o.str("HISTORY_BACKEND", &cfg.History.Backend)
	o.str("HISTORY_JSONL_PATH", &cfg.History.JSONL.Path)
	o.boolean("HISTORY_JSONL_SYNC", &cfg.History.JSONL.Sync)
	o.str("HISTORY_SQLITE_PATH", &cfg.History.SQLite.Path)
	o.str("HISTORY_SQLITE_DRIVER", &cfg.History.SQLite.Driver)
	o.list("HISTORY_TERMINAL_REASONS", &cfg.History.TerminalReasons)
	o.boolean("HISTORY_BEST_EFFORT_SYNC", &cfg.History.BestEffortSync)
	o.integer("HISTORY_RECORDER_ASYNC_BUFFER", &cfg.History.Recorder.AsyncBuffer)
	o.integer("HISTORY_QUERY_DEFAULT_LIMIT", &cfg.History.Query.DefaultLimit)
	o.integer("HISTORY_QUERY_MAX_LIMIT", &cfg.History.Query.MaxLimit)
	o.boolean("HISTORY_RETENTION_ENABLED", &cfg.History.Retention.Enabled)
	o.integer("HISTORY_RETENTION_MAX_AGE_DAYS", &cfg.History.Retention.MaxAgeDays)
	o.integer64("HISTORY_RETENTION_MAX_RECORDS", &cfg.History.Retention.MaxRecords)
	o.str("HISTORY_RETENTION_SCHEDULE", &cfg.History.Retention.Schedule)

	// Telemetry overrides
	o.str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	o.str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	o.boolean("TELEMETRY_LOGGING_REDACT_CONTENT", &cfg.Telemetry.Logging.RedactContent)
	o.boolean("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	o.str("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	o.boolean("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	o.str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	o.float("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	o.boolean("TELEMETRY_HEALTH_ENABLED", &cfg.Telemetry.Health.Enabled)

	// Reload overrides
	o.boolean("RELOAD_ENABLED", &cfg.Reload.Enabled)

	if len(o.errs) > 0 {
		return ValidationError{Errors: o.errs}
	}
	return nil
}
