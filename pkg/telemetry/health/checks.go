package health

import (
	"context"
	"errors"
	"fmt"

	"harvest-hq/gateway/pkg/history"
)

var errCheckTimeout = errors.New("health check timeout")

// Pinger is anything with a cheap reachability probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendCheck probes the chat backend. report, when non-nil, is told the
// outcome of every probe; the server uses it to drive the backend_healthy
// gauge.
func BackendCheck(backend Pinger, report func(healthy bool)) CheckFunc {
	return func(ctx context.Context) error {
		err := backend.Ping(ctx)
		if report != nil {
			report(err == nil)
		}
		if err != nil {
			return fmt.Errorf("backend unreachable: %w", err)
		}
		return nil
	}
}

// StoreCheck probes the history store. Stores without a connection to lose
// (memory, discard, jsonl) are always healthy, so nil is returned for them
// and the checker skips the entry.
func StoreCheck(store history.Store) CheckFunc {
	p, ok := store.(history.Pinger)
	if !ok {
		return nil
	}
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("history store: %w", err)
		}
		return nil
	}
}
