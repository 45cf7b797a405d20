package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"harvest-hq/gateway/pkg/config"
	"harvest-hq/gateway/pkg/proxy/types"
)

// Supported database/sql driver names.
const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"
)

// recordTimeLayouts are tried in order when parsing a stored timestamp.
var recordTimeLayouts = []string{
	sqliteTimeLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// SQLiteStore keeps turns in the chat_history table.
type SQLiteStore struct {
	db     *sql.DB
	config config.SQLiteConfig
	logger *slog.Logger
}

// OpenSQLiteStore opens the database, applies pragmas and creates the schema.
func OpenSQLiteStore(cfg config.SQLiteConfig) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "history.sqlite")

	if cfg.Driver == "" {
		cfg.Driver = DriverMattn
	}
	if dir := filepath.Dir(cfg.Path); dir != "." && cfg.Path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewStorageError("sqlite", "open", err)
		}
	}

	dsn, err := sqliteDSN(cfg)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s := &SQLiteStore{db: db, config: cfg, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite history store opened",
		"path", cfg.Path,
		"driver", cfg.Driver,
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return s, nil
}

// sqliteDSN builds a connection string that applies the busy timeout and
// journal mode to every pooled connection. The two drivers spell pragmas
// differently.
func sqliteDSN(cfg config.SQLiteConfig) (string, error) {
	busy := cfg.BusyTimeout.Milliseconds()
	params := url.Values{}

	switch cfg.Driver {
	case DriverMattn:
		params.Set("_busy_timeout", fmt.Sprint(busy))
		if cfg.WALMode {
			params.Set("_journal_mode", "WAL")
		}
	case DriverModernc:
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
		if cfg.WALMode {
			params.Add("_pragma", "journal_mode(WAL)")
		}
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", cfg.Driver)
	}

	return cfg.Path + "?" + params.Encode(), nil
}

func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Add inserts one row. The timestamp column takes its default.
func (s *SQLiteStore) Add(ctx context.Context, model string, messages []types.ChatMessage) error {
	encoded, err := encodeMessages(messages)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, insertTurn, model, encoded); err != nil {
		return NewStorageError("sqlite", "add", err)
	}
	return nil
}

// AddAt inserts one row stamped with ts, stored in the CURRENT_TIMESTAMP format.
func (s *SQLiteStore) AddAt(ctx context.Context, ts time.Time, model string, messages []types.ChatMessage) error {
	encoded, err := encodeMessages(messages)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, insertTurnAt, ts.UTC().Format(sqliteTimeLayout), model, encoded); err != nil {
		return NewStorageError("sqlite", "add", err)
	}
	return nil
}

func encodeMessages(messages []types.ChatMessage) (string, error) {
	if messages == nil {
		messages = []types.ChatMessage{}
	}
	encoded, err := json.Marshal(messages)
	if err != nil {
		return "", NewStorageError("sqlite", "encode", err)
	}
	return string(encoded), nil
}

// Recent returns up to limit rows, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, selectRecent, limit)
	if err != nil {
		return nil, NewStorageError("sqlite", "recent", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			rec      Record
			ts       sql.NullString
			model    sql.NullString
			messages sql.NullString
		)
		if err := rows.Scan(&rec.ID, &ts, &model, &messages); err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		rec.Timestamp = parseRecordTime(ts.String)
		rec.Model = model.String
		if messages.Valid && messages.String != "" {
			if err := json.Unmarshal([]byte(messages.String), &rec.Messages); err != nil {
				s.logger.Warn("stored messages are not valid JSON", "id", rec.ID, "error", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "recent", err)
	}
	return records, nil
}

func parseRecordTime(v string) time.Time {
	v = strings.TrimSpace(v)
	for _, layout := range recordTimeLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Count returns the number of rows.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, countTurns).Scan(&count); err != nil {
		return 0, NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// DeleteBefore removes rows older than cutoff.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, deleteBefore, cutoff.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return 0, NewStorageError("sqlite", "delete_before", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "delete_before", err)
	}
	return n, nil
}

// TrimTo keeps only the max newest rows.
func (s *SQLiteStore) TrimTo(ctx context.Context, max int64) (int64, error) {
	if max <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, trimTo, max)
	if err != nil {
		return 0, NewStorageError("sqlite", "trim", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "trim", err)
	}
	return n, nil
}

// Ping checks that the database answers.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("sqlite history store closed")
	return nil
}
