// Package config provides configuration management for the harvest gateway.
//
// Configuration is read from a YAML file, completed with defaults, overridden
// from the environment and validated before use.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("config.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention HARVEST_SECTION_FIELD:
//
//   - HARVEST_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - HARVEST_BACKEND_BASE_URL overrides backend.base_url
//   - HARVEST_HISTORY_BACKEND overrides history.backend
//
// Environment variables always take precedence over file-based configuration.
// A .env file can be loaded beforehand with LoadEnvFile.
//
// # Singleton Pattern
//
//	if err := config.Initialize("config.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// For testing, prefer explicit Config instances over the global singleton.
//
// # Hot Reload
//
// Watcher observes the configuration file with fsnotify and calls
// ReloadConfig after a debounce interval. Only settings read per request
// (log level, terminal reasons) take effect without a restart.
//
// # Example Configuration
//
//	server:
//	  listen_address: "0.0.0.0:11435"
//
//	backend:
//	  base_url: "http://localhost:11434"
//
//	history:
//	  backend: "sqlite"
//	  sqlite:
//	    path: "chat_history.db"
//	    driver: "sqlite"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
