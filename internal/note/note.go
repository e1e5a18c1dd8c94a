// Package note provides the Note domain type and a SQLite-backed record
// store. Notes are the canonical source of truth for stored text; the
// vector index holds only a denormalized copy for display fallback.
// A Note and its vector entry share an id but are independently managed —
// either may exist without the other after a partial failure, and callers
// must treat that as a recoverable state rather than corruption.
package note

import (
	"context"
	"time"
)

// Note is a stored unit of knowledge.
type Note struct {
	// ID is the stable unique identifier, assigned at creation. Immutable.
	ID string

	// Text is the note content. Always non-empty for persisted notes.
	Text string

	// Metadata holds arbitrary caller-supplied key-value pairs.
	Metadata map[string]string

	// CreatedAt is when the note was persisted. Immutable.
	CreatedAt time.Time
}

// Store persists and retrieves notes. Implementations must be safe for
// concurrent use and must make Create idempotent on the note id, so a
// retried ingestion persist step never produces a duplicate row.
type Store interface {
	// Create persists n. If a note with the same id already exists the
	// call is a no-op and returns the existing row — this is what makes
	// a retried pipeline step safe.
	Create(ctx context.Context, n Note) (Note, error)

	// Get returns the note with the given id.
	// Returns ErrNoteNotFound when no such note exists.
	Get(ctx context.Context, id string) (Note, error)

	// GetMany fetches all notes matching ids in a single round trip.
	// Ids with no matching note are simply absent from the result map.
	GetMany(ctx context.Context, ids []string) (map[string]Note, error)

	// Delete removes the note with the given id. Deleting a note that
	// does not exist is not an error.
	Delete(ctx context.Context, id string) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
