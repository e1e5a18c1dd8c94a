package ingestion

import (
	"context"
	"log/slog"

	"github.com/calder-n/notewise/internal/fault"
	"github.com/calder-n/notewise/internal/logging"
	"github.com/calder-n/notewise/internal/note"
	"github.com/calder-n/notewise/internal/rag"
)

// Deleter removes a note from both the record store and the vector index.
//
// The two deletes are independent: each leg is attempted regardless of the
// other's outcome, and a completed leg is never rolled back. When either leg
// fails the caller gets a deletion fault, but whatever was removed stays
// removed. Deleting an id that exists in neither store succeeds.
type Deleter struct {
	notes   note.Store
	vectors rag.VectorStore
}

// NewDeleter wires a deletion coordinator over the two storage systems.
func NewDeleter(notes note.Store, vectors rag.VectorStore) *Deleter {
	return &Deleter{notes: notes, vectors: vectors}
}

// Delete removes the note with the given id from the record store and its
// embedding from the vector index. Both legs always run; the returned error
// reports the first leg that failed.
func (d *Deleter) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fault.New(fault.KindValidation, "note id is required")
	}

	log := logging.FromContext(ctx)

	recordErr := d.notes.Delete(ctx, id)
	vectorErr := d.vectors.Delete(ctx, []string{id})

	switch {
	case recordErr != nil && vectorErr != nil:
		log.Error("deletion failed in both stores", "note_id", id,
			slog.Any("record_error", recordErr), slog.Any("vector_error", vectorErr))
		return fault.Wrap(fault.KindDeletion, "note could not be deleted", recordErr)
	case recordErr != nil:
		log.Error("record store deletion failed", "note_id", id, slog.Any("error", recordErr))
		return fault.Wrap(fault.KindDeletion, "note record could not be deleted", recordErr)
	case vectorErr != nil:
		log.Error("vector index deletion failed", "note_id", id, slog.Any("error", vectorErr))
		return fault.Wrap(fault.KindDeletion, "note embedding could not be deleted", vectorErr)
	}

	log.Debug("note deleted", "note_id", id)
	return nil
}
