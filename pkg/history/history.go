package history

import (
	"context"
	"time"

	"harvest-hq/gateway/pkg/proxy/types"
)

// Store is the append-only sink for completed turns.
type Store interface {
	// Add durably records one turn. Previously stored records are never lost.
	Add(ctx context.Context, model string, messages []types.ChatMessage) error

	// Close releases the backend's resources.
	Close() error
}

// Reader is implemented by stores that can return stored records.
type Reader interface {
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)
}

// Pruner is implemented by stores that support retention.
type Pruner interface {
	// DeleteBefore removes records older than cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// TrimTo keeps only the max newest records.
	TrimTo(ctx context.Context, max int64) (int64, error)
}

// TimedAdder is implemented by stores that can record a turn under the time
// it completed rather than the time it reached the store.
type TimedAdder interface {
	AddAt(ctx context.Context, ts time.Time, model string, messages []types.ChatMessage) error
}

// Pinger is implemented by stores whose availability can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Turn is a completed exchange waiting to be stored.
type Turn struct {
	Timestamp time.Time
	Model     string
	Messages  []types.ChatMessage

	// RequestID correlates the turn with request logs. It is not persisted.
	RequestID string
}

// Record is a stored turn.
type Record struct {
	ID        int64               `json:"id"`
	Timestamp time.Time           `json:"timestamp"`
	Model     string              `json:"model"`
	Messages  []types.ChatMessage `json:"messages"`
}

// AddTurn stores turn, keeping turn.Timestamp when the store accepts one.
func AddTurn(ctx context.Context, store Store, turn Turn) error {
	if ta, ok := store.(TimedAdder); ok && !turn.Timestamp.IsZero() {
		return ta.AddAt(ctx, turn.Timestamp, turn.Model, turn.Messages)
	}
	return store.Add(ctx, turn.Model, turn.Messages)
}

// newest returns up to limit records from the tail of records, newest first.
func newest(records []Record, limit int) []Record {
	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}
	out := make([]Record, 0, limit)
	for i := len(records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, records[i])
	}
	return out
}
