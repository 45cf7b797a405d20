package history

import (
	"fmt"
	"strings"

	"harvest-hq/gateway/pkg/config"
)

// Backend names accepted by Open.
const (
	BackendDiscard = "discard"
	BackendJSONL   = "jsonl"
	BackendSQLite  = "sqlite"
	BackendMemory  = "memory"
)

// Open creates the store selected by cfg.Backend.
func Open(cfg config.HistoryConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendDiscard, "none":
		return NewDiscardStore(), nil
	case BackendJSONL, "":
		return OpenJSONLStore(cfg.JSONL.Path, cfg.JSONL.Sync)
	case BackendSQLite:
		return OpenSQLiteStore(cfg.SQLite)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, NewStorageError(cfg.Backend, "open", fmt.Errorf("unknown history backend %q", cfg.Backend))
	}
}
