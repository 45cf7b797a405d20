package history

import (
	"context"
	"sync"
	"time"

	"harvest-hq/gateway/pkg/proxy/types"
)

// MemoryStore keeps records in process memory. Records are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	nextID  int64
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, now: time.Now}
}

// Add appends a copy of the turn stamped with the current time.
func (s *MemoryStore) Add(ctx context.Context, model string, messages []types.ChatMessage) error {
	return s.AddAt(ctx, s.now(), model, messages)
}

// AddAt appends a copy of the turn stamped with ts.
func (s *MemoryStore) AddAt(ctx context.Context, ts time.Time, model string, messages []types.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return NewStorageError("memory", "add", err)
	}

	msgs := make([]types.ChatMessage, len(messages))
	copy(msgs, messages)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, Record{
		ID:        s.nextID,
		Timestamp: ts.UTC(),
		Model:     model,
		Messages:  msgs,
	})
	s.nextID++
	return nil
}

// Recent returns up to limit records, newest first.
func (s *MemoryStore) Recent(_ context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newest(s.records, limit), nil
}

// Count returns the number of records.
func (s *MemoryStore) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// DeleteBefore removes records older than cutoff.
func (s *MemoryStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	for _, r := range s.records {
		if !r.Timestamp.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	deleted := int64(len(s.records) - len(kept))
	s.records = kept
	return deleted, nil
}

// TrimTo keeps only the max newest records.
func (s *MemoryStore) TrimTo(_ context.Context, max int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	excess := int64(len(s.records)) - max
	if max <= 0 || excess <= 0 {
		return 0, nil
	}
	s.records = append([]Record(nil), s.records[excess:]...)
	return excess, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
