package ingestion

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Journal persists per-step checkpoints for ingestion workflows. A step
// whose result is present in the journal has completed and must not be
// re-executed when the workflow is retried — this is what makes the
// pipeline resumable after a mid-flight failure.
type Journal interface {
	// Get returns the stored payload for (workflowID, step).
	// ok is false when the step has no checkpoint yet.
	Get(ctx context.Context, workflowID, step string) (payload []byte, ok bool, err error)

	// Put stores the payload for (workflowID, step), replacing any
	// previous checkpoint for the same key.
	Put(ctx context.Context, workflowID, step string, payload []byte) error
}

// SQLiteJournal is a Journal backed by a local SQLite database. It can
// share a database file with the note store — the two use separate
// tables.
type SQLiteJournal struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// OpenJournal opens (or creates) a SQLiteJournal at the given path and
// runs the schema migration. Use ":memory:" in tests.
func OpenJournal(path string) (*SQLiteJournal, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ingestion: open journal %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	j := &SQLiteJournal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// migrate creates the checkpoint table if it does not already exist.
func (j *SQLiteJournal) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS ingest_steps (
    workflow_id  TEXT    NOT NULL,
    step         TEXT    NOT NULL,
    payload      BLOB    NOT NULL,
    completed_at INTEGER NOT NULL,  -- Unix timestamp (seconds)
    PRIMARY KEY (workflow_id, step)
);
`
	if _, err := j.db.Exec(ddl); err != nil {
		return fmt.Errorf("ingestion: migrate journal: %w", err)
	}
	return nil
}

// Get returns the checkpoint payload for (workflowID, step).
func (j *SQLiteJournal) Get(ctx context.Context, workflowID, step string) ([]byte, bool, error) {
	const q = `SELECT payload FROM ingest_steps WHERE workflow_id = ? AND step = ?`
	var payload []byte
	err := j.db.QueryRowContext(ctx, q, workflowID, step).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ingestion: journal get %s/%s: %w", workflowID, step, err)
	}
	return payload, true, nil
}

// Put stores the checkpoint payload, replacing any previous one.
func (j *SQLiteJournal) Put(ctx context.Context, workflowID, step string, payload []byte) error {
	const q = `INSERT INTO ingest_steps (workflow_id, step, payload, completed_at) VALUES (?, ?, ?, ?)
               ON CONFLICT(workflow_id, step) DO UPDATE SET payload = excluded.payload, completed_at = excluded.completed_at`
	if _, err := j.db.ExecContext(ctx, q, workflowID, step, payload, time.Now().Unix()); err != nil {
		return fmt.Errorf("ingestion: journal put %s/%s: %w", workflowID, step, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
