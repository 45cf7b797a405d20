package history

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvest-hq/gateway/pkg/config"
	"harvest-hq/gateway/pkg/proxy/types"
)

// readableStore is satisfied by every backend except discard.
type readableStore interface {
	Store
	TimedAdder
	Reader
	Pruner
}

func turn(user, assistant string) []types.ChatMessage {
	return []types.ChatMessage{
		{Role: types.RoleUser, Content: user},
		{Role: types.RoleAssistant, Content: assistant},
	}
}

func openBackends(t *testing.T) map[string]readableStore {
	t.Helper()
	dir := t.TempDir()

	jsonl, err := OpenJSONLStore(filepath.Join(dir, "history.jsonl"), true)
	require.NoError(t, err)

	stores := map[string]readableStore{
		"memory": NewMemoryStore(),
		"jsonl":  jsonl,
	}

	for _, driver := range []string{DriverMattn, DriverModernc} {
		s, err := OpenSQLiteStore(config.SQLiteConfig{
			Path:         filepath.Join(dir, driver+".db"),
			Driver:       driver,
			MaxOpenConns: 4,
			MaxIdleConns: 2,
			WALMode:      true,
			BusyTimeout:  5 * time.Second,
		})
		require.NoError(t, err)
		stores["sqlite/"+driver] = s
	}

	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStores_AddAndRecent(t *testing.T) {
	ctx := context.Background()

	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			for i, content := range []string{"one", "two", "three"} {
				require.NoError(t, store.Add(ctx, "llama3", turn(content, "reply "+content)), "add %d", i)
			}

			count, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), count)

			records, err := store.Recent(ctx, 2)
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, "three", records[0].Messages[0].Content)
			assert.Equal(t, "two", records[1].Messages[0].Content)
			assert.Greater(t, records[0].ID, records[1].ID)
			assert.Equal(t, "llama3", records[0].Model)
			assert.False(t, records[0].Timestamp.IsZero())

			all, err := store.Recent(ctx, 0)
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestStores_PreservesMessageFields(t *testing.T) {
	ctx := context.Background()

	msgs := []types.ChatMessage{
		{Role: types.RoleSystem, Content: "be brief"},
		{Role: types.RoleUser, Content: "Hi"},
		{Role: types.RoleAssistant, Content: "Hello", Thinking: "greeting"},
	}

	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Add(ctx, "m", msgs))

			records, err := store.Recent(ctx, 1)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, msgs, records[0].Messages)
		})
	}
}

func TestStores_AddTurnKeepsTimestamp(t *testing.T) {
	ctx := context.Background()
	completed := time.Now().Add(-48 * time.Hour).UTC().Truncate(time.Second)

	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, AddTurn(ctx, store, Turn{
				Timestamp: completed,
				Model:     "m",
				Messages:  turn("late", ""),
			}))

			records, err := store.Recent(ctx, 1)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.True(t, completed.Equal(records[0].Timestamp), "timestamp = %v, want %v", records[0].Timestamp, completed)

			deleted, err := store.DeleteBefore(ctx, completed.Add(time.Hour))
			require.NoError(t, err)
			assert.Equal(t, int64(1), deleted)
		})
	}
}

func TestStores_TrimTo(t *testing.T) {
	ctx := context.Background()

	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			for _, content := range []string{"a", "b", "c", "d"} {
				require.NoError(t, store.Add(ctx, "m", turn(content, "")))
			}

			deleted, err := store.TrimTo(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, int64(2), deleted)

			records, err := store.Recent(ctx, 10)
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, "d", records[0].Messages[0].Content)
			assert.Equal(t, "c", records[1].Messages[0].Content)

			deleted, err = store.TrimTo(ctx, 10)
			require.NoError(t, err)
			assert.Zero(t, deleted)
		})
	}
}

func TestStores_DeleteBefore(t *testing.T) {
	ctx := context.Background()

	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Add(ctx, "m", turn("old", "")))

			deleted, err := store.DeleteBefore(ctx, time.Now().Add(-time.Hour))
			require.NoError(t, err)
			assert.Zero(t, deleted)

			deleted, err = store.DeleteBefore(ctx, time.Now().Add(time.Hour))
			require.NoError(t, err)
			assert.Equal(t, int64(1), deleted)

			count, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestStores_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	const writers = 8

	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, store.Add(ctx, "m", turn("hi", "hello")))
				}()
			}
			wg.Wait()

			count, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(writers), count)
		})
	}
}

func TestDiscardStore(t *testing.T) {
	s := NewDiscardStore()
	require.NoError(t, s.Add(context.Background(), "m", turn("a", "b")))
	require.NoError(t, s.Close())

	var store Store = s
	_, isReader := store.(Reader)
	assert.False(t, isReader)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMemoryStore().Add(ctx, "m", turn("a", "b"))
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "memory", storageErr.Backend)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.HistoryConfig
		want    any
		wantErr bool
	}{
		{name: "discard", cfg: config.HistoryConfig{Backend: "discard"}, want: &DiscardStore{}},
		{name: "memory", cfg: config.HistoryConfig{Backend: "memory"}, want: &MemoryStore{}},
		{
			name: "jsonl",
			cfg:  config.HistoryConfig{Backend: "jsonl", JSONL: config.JSONLConfig{Path: filepath.Join(dir, "h.jsonl")}},
			want: &JSONLStore{},
		},
		{
			name: "sqlite",
			cfg: config.HistoryConfig{Backend: "sqlite", SQLite: config.SQLiteConfig{
				Path: filepath.Join(dir, "h.db"), Driver: DriverModernc, BusyTimeout: time.Second,
			}},
			want: &SQLiteStore{},
		},
		{name: "unknown", cfg: config.HistoryConfig{Backend: "postgres"}, wantErr: true},
		{
			name:    "bad driver",
			cfg:     config.HistoryConfig{Backend: "sqlite", SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "x.db"), Driver: "pg"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(tt.cfg)
			if tt.wantErr {
				var storageErr *StorageError
				require.ErrorAs(t, err, &storageErr)
				return
			}
			require.NoError(t, err)
			defer store.Close()
			assert.IsType(t, tt.want, store)
		})
	}
}
