package note

import (
	"context"
	"errors"
	"testing"
	"time"
)

// newTestStore opens an in-memory store and registers cleanup.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:): %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestCreateAndGet verifies the basic round trip including metadata and
// the UTC created-at timestamp.
func TestCreateAndGet(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, Note{
		ID:       "n1",
		Text:     "Pepperoni is the best pizza topping",
		Metadata: map[string]string{"source": "api"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != "n1" {
		t.Errorf("id: expected n1, got %q", created.ID)
	}
	if created.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}

	got, err := s.Get(ctx, "n1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Text != "Pepperoni is the best pizza topping" {
		t.Errorf("text: got %q", got.Text)
	}
	if got.Metadata["source"] != "api" {
		t.Errorf("metadata: got %v", got.Metadata)
	}
}

// TestCreate_IdempotentOnID verifies that replaying a Create with the same
// id does not duplicate the row and returns the original note. This is the
// guarantee the ingestion persist step relies on when it is retried.
func TestCreate_IdempotentOnID(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, Note{ID: "n1", Text: "original", CreatedAt: time.Unix(1000, 0)})
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}

	// Retry with the same id but a different text and timestamp — the
	// stored row must win.
	second, err := s.Create(ctx, Note{ID: "n1", Text: "retry", CreatedAt: time.Unix(2000, 0)})
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if second.Text != first.Text {
		t.Errorf("expected original text %q, got %q", first.Text, second.Text)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("expected original timestamp %v, got %v", first.CreatedAt, second.CreatedAt)
	}

	all, err := s.GetMany(ctx, []string{"n1"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(all))
	}
}

// TestGet_NotFound verifies the sentinel error for missing notes.
func TestGet_NotFound(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("expected ErrNoteNotFound, got %v", err)
	}
}

// TestGetMany_PartialMisses verifies that unknown ids are simply absent
// from the result, not an error.
func TestGetMany_PartialMisses(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if _, err := s.Create(ctx, Note{ID: id, Text: "text " + id}); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	got, err := s.GetMany(ctx, []string{"a", "missing", "b"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(got))
	}
	if _, ok := got["missing"]; ok {
		t.Errorf("unexpected entry for missing id")
	}
	if got["a"].Text != "text a" || got["b"].Text != "text b" {
		t.Errorf("unexpected notes: %v", got)
	}
}

// TestGetMany_Empty verifies the empty-input fast path.
func TestGetMany_Empty(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	got, err := s.GetMany(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}

// TestDelete verifies deletion and that deleting a missing note is a no-op.
func TestDelete(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, Note{ID: "n1", Text: "doomed"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete(ctx, "n1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "n1"); !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("expected ErrNoteNotFound after delete, got %v", err)
	}

	// Second delete of the same id is not an error.
	if err := s.Delete(ctx, "n1"); err != nil {
		t.Errorf("repeat Delete: %v", err)
	}
}
