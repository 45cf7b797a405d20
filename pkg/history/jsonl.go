package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"harvest-hq/gateway/pkg/proxy/types"
)

// jsonlEntry is the on-disk shape of one line.
type jsonlEntry struct {
	Timestamp string              `json:"timestamp"`
	Model     string              `json:"model"`
	Messages  []types.ChatMessage `json:"messages"`
}

// timestampLayouts are accepted when reading an existing log. The last two
// cover ISO-8601 local times without a zone offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// logFile is the part of *os.File the store appends through.
type logFile interface {
	io.WriteCloser
	Sync() error
	Truncate(size int64) error
	Stat() (fs.FileInfo, error)
}

// JSONLStore is an append-only log with one JSON record per line.
// Existing lines are loaded on open and kept in memory for Recent.
// Record IDs are 1-based positions in the current file.
type JSONLStore struct {
	path   string
	sync   bool
	logger *slog.Logger

	mu      sync.RWMutex
	file    logFile
	records []Record
	now     func() time.Time

	// torn is set while the log does not end in a newline.
	torn bool
}

// OpenJSONLStore opens (or creates) the log at path.
func OpenJSONLStore(path string, syncWrites bool) (*JSONLStore, error) {
	logger := slog.Default().With("component", "history.jsonl")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewStorageError("jsonl", "open", err)
		}
	}

	records, skipped, torn, err := loadJSONL(path)
	if err != nil {
		return nil, NewStorageError("jsonl", "load", err)
	}
	if skipped > 0 {
		logger.Warn("skipped malformed history lines", "path", path, "skipped", skipped)
	}
	if torn {
		logger.Warn("history log ends in a partial line", "path", path)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, NewStorageError("jsonl", "open", err)
	}

	logger.Info("jsonl history store opened", "path", path, "records", len(records), "sync", syncWrites)

	return &JSONLStore{
		path:    path,
		sync:    syncWrites,
		logger:  logger,
		file:    f,
		records: records,
		now:     time.Now,
		torn:    torn,
	}, nil
}

// loadJSONL reads every well-formed line of path and reports whether the
// file ends without a trailing newline. A missing file is empty.
func loadJSONL(path string) ([]Record, int, bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	defer f.Close()

	var (
		records []Record
		skipped int
		torn    bool
	)
	reader := bufio.NewReader(f)
	for {
		raw, readErr := reader.ReadBytes('\n')
		torn = len(raw) > 0 && raw[len(raw)-1] != '\n'
		if line := bytes.TrimSpace(raw); len(line) > 0 {
			rec, ok := decodeJSONLLine(line)
			if ok {
				rec.ID = int64(len(records) + 1)
				records = append(records, rec)
			} else {
				skipped++
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return nil, 0, false, readErr
		}
	}
	return records, skipped, torn, nil
}

func decodeJSONLLine(line []byte) (Record, bool) {
	var e jsonlEntry
	if err := json.Unmarshal(line, &e); err != nil {
		return Record{}, false
	}

	var ts time.Time
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, e.Timestamp); err == nil {
			ts = t
			break
		}
	}

	return Record{Timestamp: ts, Model: e.Model, Messages: e.Messages}, true
}

// Add appends one line stamped with the current time.
func (s *JSONLStore) Add(ctx context.Context, model string, messages []types.ChatMessage) error {
	return s.AddAt(ctx, s.now(), model, messages)
}

// AddAt appends one line stamped with ts. The in-memory view changes only
// after the write succeeds; a failed write is cut back off the file.
func (s *JSONLStore) AddAt(ctx context.Context, ts time.Time, model string, messages []types.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return NewStorageError("jsonl", "add", err)
	}

	line, err := json.Marshal(jsonlEntry{
		Timestamp: ts.Format(time.RFC3339Nano),
		Model:     model,
		Messages:  messages,
	})
	if err != nil {
		return NewStorageError("jsonl", "encode", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return NewStorageError("jsonl", "add", fmt.Errorf("store is closed"))
	}
	if s.torn {
		line = append([]byte{'\n'}, line...)
	}

	info, err := s.file.Stat()
	if err != nil {
		return NewStorageError("jsonl", "stat", err)
	}
	if _, err := s.file.Write(line); err != nil {
		s.truncateLocked(info.Size())
		return NewStorageError("jsonl", "write", err)
	}
	if s.sync {
		if err := s.file.Sync(); err != nil {
			s.truncateLocked(info.Size())
			return NewStorageError("jsonl", "sync", err)
		}
	}
	s.torn = false

	msgs := make([]types.ChatMessage, len(messages))
	copy(msgs, messages)
	s.records = append(s.records, Record{
		ID:        int64(len(s.records) + 1),
		Timestamp: ts,
		Model:     model,
		Messages:  msgs,
	})
	return nil
}

// truncateLocked drops bytes written past size by a failed append. If that
// fails too, the next append starts on a fresh line.
func (s *JSONLStore) truncateLocked(size int64) {
	if err := s.file.Truncate(size); err != nil {
		s.torn = true
		s.logger.Error("failed to discard partial history line", "path", s.path, "error", err)
	}
}

// Recent returns up to limit records, newest first.
func (s *JSONLStore) Recent(_ context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newest(s.records, limit), nil
}

// Count returns the number of records.
func (s *JSONLStore) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// DeleteBefore rewrites the log without records older than cutoff.
func (s *JSONLStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []Record
	for _, r := range s.records {
		if !r.Timestamp.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	return s.rewriteLocked(kept)
}

// TrimTo rewrites the log keeping only the max newest records.
func (s *JSONLStore) TrimTo(_ context.Context, max int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	excess := int64(len(s.records)) - max
	if max <= 0 || excess <= 0 {
		return 0, nil
	}
	return s.rewriteLocked(s.records[excess:])
}

// rewriteLocked atomically replaces the log with kept and renumbers IDs.
func (s *JSONLStore) rewriteLocked(kept []Record) (int64, error) {
	deleted := int64(len(s.records) - len(kept))
	if deleted == 0 {
		return 0, nil
	}
	if s.file == nil {
		return 0, NewStorageError("jsonl", "prune", fmt.Errorf("store is closed"))
	}

	tmpPath := s.path + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, NewStorageError("jsonl", "prune", err)
	}

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	renumbered := make([]Record, 0, len(kept))
	for _, r := range kept {
		entry := jsonlEntry{Timestamp: r.Timestamp.Format(time.RFC3339Nano), Model: r.Model, Messages: r.Messages}
		if err := enc.Encode(entry); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return 0, NewStorageError("jsonl", "prune", err)
		}
		r.ID = int64(len(renumbered) + 1)
		renumbered = append(renumbered, r)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, NewStorageError("jsonl", "prune", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, NewStorageError("jsonl", "prune", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, NewStorageError("jsonl", "prune", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return 0, NewStorageError("jsonl", "prune", err)
	}

	// The old handle points at the replaced inode.
	s.file.Close()
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		s.file = nil
		return 0, NewStorageError("jsonl", "reopen", err)
	}
	s.file = f
	s.records = renumbered
	s.torn = false

	s.logger.Info("history log pruned", "deleted", deleted, "remaining", len(renumbered))
	return deleted, nil
}

// Close flushes and closes the log file.
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return NewStorageError("jsonl", "close", err)
	}
	return nil
}
