package fault

import (
	"errors"
	"fmt"
	"testing"
)

// TestKindOf_Wrapped verifies that KindOf finds the Fault through layers of
// fmt.Errorf %w wrapping.
func TestKindOf_Wrapped(t *testing.T) {
	t.Parallel()

	root := Wrap(KindEmbedding, "embedding failed", errors.New("connection refused"))
	wrapped := fmt.Errorf("searcher: query embed: %w", root)
	wrapped = fmt.Errorf("handler: %w", wrapped)

	if got := KindOf(wrapped); got != KindEmbedding {
		t.Errorf("KindOf: expected KindEmbedding, got %v", got)
	}
	if !IsKind(wrapped, KindEmbedding) {
		t.Errorf("IsKind: expected true for KindEmbedding")
	}
	if IsKind(wrapped, KindSearch) {
		t.Errorf("IsKind: expected false for KindSearch")
	}
}

// TestKindOf_Unclassified verifies the KindUnknown fallback for plain errors.
func TestKindOf_Unclassified(t *testing.T) {
	t.Parallel()

	if got := KindOf(errors.New("boom")); got != KindUnknown {
		t.Errorf("expected KindUnknown, got %v", got)
	}
	if got := Message(errors.New("boom")); got != "internal error" {
		t.Errorf("Message: expected generic fallback, got %q", got)
	}
}

// TestWrap_NilErr verifies that wrapping a nil error yields nil, so call
// sites can wrap return values unconditionally.
func TestWrap_NilErr(t *testing.T) {
	t.Parallel()

	if f := Wrap(KindSearch, "query failed", nil); f != nil {
		t.Errorf("expected nil, got %v", f)
	}
}

// TestMessage_OutermostFault verifies that Message returns the outermost
// classified message, not the root cause.
func TestMessage_OutermostFault(t *testing.T) {
	t.Parallel()

	inner := Wrap(KindEmbedding, "embedding failed", errors.New("dial tcp: refused"))
	outer := Wrap(KindSearch, "search failed", inner)

	if got := Message(outer); got != "search failed" {
		t.Errorf("expected outer message, got %q", got)
	}
	// The outer kind wins, but the inner kind is still reachable via the chain
	// if the inner fault is unwrapped first.
	if got := KindOf(outer); got != KindSearch {
		t.Errorf("expected KindSearch, got %v", got)
	}
}

// TestKindString covers the stable labels used in logs and metrics.
func TestKindString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind Kind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindValidation, "validation"},
		{KindEmbedding, "embedding"},
		{KindSearch, "search"},
		{KindGeneration, "generation"},
		{KindDeletion, "deletion"},
		{KindNotFound, "not_found"},
	}
	for _, tc := range cases {
		if got := tc.kind.String(); got != tc.want {
			t.Errorf("Kind(%d).String(): expected %q, got %q", tc.kind, tc.want, got)
		}
	}
}
