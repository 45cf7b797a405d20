package history

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLStore_ReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "history.jsonl")

	s, err := OpenJSONLStore(path, false)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, "llama3", turn("Hi", "Hello")))
	require.NoError(t, s.Add(ctx, "llama3", turn("Again", "Sure")))
	require.NoError(t, s.Close())

	s, err = OpenJSONLStore(path, false)
	require.NoError(t, err)
	defer s.Close()

	records, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), records[0].ID)
	assert.Equal(t, "Again", records[0].Messages[0].Content)

	require.NoError(t, s.Add(ctx, "llama3", turn("Third", "")))
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestJSONLStore_LineFormat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.jsonl")

	s, err := OpenJSONLStore(path, true)
	require.NoError(t, err)
	fixed := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.Add(ctx, "llama3", turn("Hi", "Hello")))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "2024-05-01T12:30:00Z", entry["timestamp"])
	assert.Equal(t, "llama3", entry["model"])
	assert.Len(t, entry["messages"], 2)
}

func TestJSONLStore_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	content := strings.Join([]string{
		`{"timestamp":"2024-01-01T10:00:00.123456","model":"a","messages":[{"role":"user","content":"x"}]}`,
		`not json`,
		``,
		`{"timestamp":"2024-01-02T10:00:00Z","model":"b","messages":[]}`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := OpenJSONLStore(path, false)
	require.NoError(t, err)
	defer s.Close()

	records, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0].Model)
	assert.Equal(t, "a", records[1].Model)
	assert.Equal(t, 2024, records[1].Timestamp.Year())
}

func TestJSONLStore_PruneRewritesFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.jsonl")

	s, err := OpenJSONLStore(path, false)
	require.NoError(t, err)
	defer s.Close()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, content := range []string{"a", "b", "c"} {
		ts := base.Add(time.Duration(i) * 24 * time.Hour)
		s.now = func() time.Time { return ts }
		require.NoError(t, s.Add(ctx, "m", turn(content, "")))
	}

	deleted, err := s.DeleteBefore(ctx, base.Add(36*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	// Appends after a rewrite land in the new file.
	s.now = time.Now
	require.NoError(t, s.Add(ctx, "m", turn("d", "")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))

	records, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), records[0].ID)
	assert.Equal(t, "d", records[0].Messages[0].Content)
	assert.Equal(t, int64(1), records[1].ID)
}

func TestJSONLStore_AddAfterClose(t *testing.T) {
	s, err := OpenJSONLStore(filepath.Join(t.TempDir(), "h.jsonl"), false)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err = s.Add(context.Background(), "m", turn("a", ""))
	assert.Error(t, err)
}

// shortFile writes half of the next append and then fails.
type shortFile struct {
	*os.File
	fail bool
}

func (f *shortFile) Write(p []byte) (int, error) {
	if !f.fail {
		return f.File.Write(p)
	}
	f.fail = false
	n, _ := f.File.Write(p[:len(p)/2])
	return n, errors.New("no space left on device")
}

func TestJSONLStore_FailedWriteLeavesNoFragment(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.jsonl")

	s, err := OpenJSONLStore(path, true)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, "m", turn("first", "")))

	s.file = &shortFile{File: s.file.(*os.File), fail: true}
	err = s.Add(ctx, "m", turn("lost", ""))
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "write", storageErr.Operation)

	require.NoError(t, s.Add(ctx, "m", turn("after", "")))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		assert.True(t, json.Valid([]byte(line)), "line %q", line)
	}

	s, err = OpenJSONLStore(path, false)
	require.NoError(t, err)
	defer s.Close()

	records, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "after", records[0].Messages[0].Content)
	assert.Equal(t, "first", records[1].Messages[0].Content)
}

func TestJSONLStore_AppendAfterPartialTail(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.jsonl")
	content := `{"timestamp":"2024-01-01T10:00:00Z","model":"a","messages":[]}` + "\n" + `{"timestamp":"2024-01-02T1`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := OpenJSONLStore(path, false)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, "b", turn("hi", "")))
	require.NoError(t, s.Close())

	s, err = OpenJSONLStore(path, false)
	require.NoError(t, err)
	defer s.Close()

	records, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0].Model)
	assert.Equal(t, "a", records[1].Model)
}

func TestJSONLStore_AddAtKeepsTimestamp(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.jsonl")

	s, err := OpenJSONLStore(path, false)
	require.NoError(t, err)
	completed := time.Date(2024, 3, 9, 8, 7, 6, 0, time.UTC)
	require.NoError(t, s.AddAt(ctx, completed, "m", turn("a", "b")))
	require.NoError(t, s.Close())

	s, err = OpenJSONLStore(path, false)
	require.NoError(t, err)
	defer s.Close()

	records, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, completed.Equal(records[0].Timestamp), "timestamp = %v", records[0].Timestamp)
}
