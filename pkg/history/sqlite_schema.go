package history

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the chat history table. The layout matches databases
// written by earlier deployments, so existing files open unchanged.
const Schema = `
CREATE TABLE IF NOT EXISTS chat_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
    model VARCHAR(255),
    messages TEXT
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_history_timestamp ON chat_history(timestamp);
`

// InsertSchemaVersion records the schema version once.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion returns the newest applied schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const (
	insertTurn = `INSERT INTO chat_history (model, messages) VALUES (?, ?)`

	insertTurnAt = `INSERT INTO chat_history (timestamp, model, messages) VALUES (?, ?, ?)`

	selectRecent = `
SELECT id, CAST(timestamp AS TEXT), model, messages
FROM chat_history
ORDER BY id DESC
LIMIT ?`

	countTurns = `SELECT COUNT(*) FROM chat_history`

	deleteBefore = `DELETE FROM chat_history WHERE timestamp < ?`

	trimTo = `
DELETE FROM chat_history
WHERE id NOT IN (SELECT id FROM chat_history ORDER BY id DESC LIMIT ?)`
)

// sqliteTimeLayout is the format of CURRENT_TIMESTAMP values (UTC).
const sqliteTimeLayout = "2006-01-02 15:04:05"
