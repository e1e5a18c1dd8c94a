package note

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// ErrNoteNotFound is returned by Get when no note matches the id.
var ErrNoteNotFound = errors.New("note: not found")

// SQLiteStore is a Store backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the notes database.
// It resolves to ~/.notewise/notes.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("note: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".notewise")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("note: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "notes.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("note: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS notes (
    id          TEXT    PRIMARY KEY,
    text        TEXT    NOT NULL CHECK(length(text) > 0),
    metadata    TEXT    NOT NULL DEFAULT '{}',  -- JSON object
    created_at  INTEGER NOT NULL                -- Unix timestamp (seconds)
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("note: migrate: %w", err)
	}
	return nil
}

// Create persists n. The insert is keyed on the note id with ON CONFLICT
// DO NOTHING, so replaying the same id returns the previously stored row
// instead of creating a duplicate.
func (s *SQLiteStore) Create(ctx context.Context, n Note) (Note, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Metadata == nil {
		n.Metadata = map[string]string{}
	}

	meta, err := json.Marshal(n.Metadata)
	if err != nil {
		return Note{}, fmt.Errorf("note: marshal metadata: %w", err)
	}

	const q = `INSERT INTO notes (id, text, metadata, created_at) VALUES (?, ?, ?, ?)
               ON CONFLICT(id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, q, n.ID, n.Text, string(meta), n.CreatedAt.Unix()); err != nil {
		return Note{}, fmt.Errorf("note: create %s: %w", n.ID, err)
	}

	// Read back the row so a replayed Create returns the original note,
	// including the original timestamp, not the retry's view of it.
	return s.Get(ctx, n.ID)
}

// Get returns the note with the given id, or ErrNoteNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Note, error) {
	const q = `SELECT id, text, metadata, created_at FROM notes WHERE id = ?`
	n, err := scanNote(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, fmt.Errorf("note: get %s: %w", id, ErrNoteNotFound)
	}
	if err != nil {
		return Note{}, fmt.Errorf("note: get %s: %w", id, err)
	}
	return n, nil
}

// GetMany fetches all notes matching ids in a single query using an IN
// clause. The query path depends on this being one round trip — a per-id
// loop would put N store calls on the request latency budget.
func (s *SQLiteStore) GetMany(ctx context.Context, ids []string) (map[string]Note, error) {
	result := make(map[string]Note, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	q := `SELECT id, text, metadata, created_at FROM notes WHERE id IN (` + placeholders + `)`

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("note: get many: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("note: get many: %w", err)
		}
		result[n.ID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("note: get many: %w", err)
	}

	return result, nil
}

// Delete removes the note with the given id. Missing rows are not an error.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM notes WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("note: delete %s: %w", id, err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("note: ping: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanNote reads one notes row into a Note, decoding the metadata JSON.
func scanNote(row rowScanner) (Note, error) {
	var (
		n       Note
		meta    string
		created int64
	)
	if err := row.Scan(&n.ID, &n.Text, &meta, &created); err != nil {
		return Note{}, err
	}
	n.CreatedAt = time.Unix(created, 0).UTC()
	n.Metadata = map[string]string{}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &n.Metadata); err != nil {
			return Note{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return n, nil
}
