package answer

import (
	"strings"
	"testing"

	"github.com/calder-n/notewise/internal/note"
)

// TestBuildContext_Empty verifies that no notes produce the empty string,
// which callers interpret as "send no context message".
func TestBuildContext_Empty(t *testing.T) {
	t.Parallel()

	if got := BuildContext(nil); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
	if got := BuildContext([]note.Note{}); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

// TestBuildContext_BulletsInOrder verifies the literal block shape: a
// "Context:" header and one bullet per note in input order.
func TestBuildContext_BulletsInOrder(t *testing.T) {
	t.Parallel()

	got := BuildContext([]note.Note{
		{ID: "1", Text: "first note"},
		{ID: "2", Text: "second note"},
	})

	want := "Context:\n- first note\n- second note"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	if n := strings.Count(got, "\n- "); n != 2 {
		t.Errorf("expected exactly 2 bullets, got %d", n)
	}
}

// TestBuildContext_SingleNote covers the one-bullet case.
func TestBuildContext_SingleNote(t *testing.T) {
	t.Parallel()

	got := BuildContext([]note.Note{{Text: "only"}})
	if got != "Context:\n- only" {
		t.Errorf("got %q", got)
	}
}
