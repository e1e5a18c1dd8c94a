// Package fault classifies failures crossing component boundaries so the
// HTTP layer can map a root cause to a status code without inspecting
// error strings. Components wrap collaborator failures in a [*Fault] with
// the appropriate [Kind]; everything in between propagates with plain
// fmt.Errorf %w wrapping.
package fault

import (
	"errors"
	"fmt"
)

// Kind identifies the failure class of a [*Fault].
type Kind int

const (
	// KindUnknown is the zero Kind; it maps to a generic 500.
	KindUnknown Kind = iota
	// KindValidation is bad caller input (maps to 400). Never retried.
	KindValidation
	// KindEmbedding is an embedding collaborator failure.
	KindEmbedding
	// KindSearch is a vector index query failure (maps to 503 on /search).
	KindSearch
	// KindGeneration is a language-model call failure.
	KindGeneration
	// KindDeletion means one or both legs of a dual delete failed.
	KindDeletion
	// KindNotFound is an unmatched route or missing record (maps to 404).
	KindNotFound
)

// String returns the stable label for the kind, used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindEmbedding:
		return "embedding"
	case KindSearch:
		return "search"
	case KindGeneration:
		return "generation"
	case KindDeletion:
		return "deletion"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Fault is a classified error. It satisfies the error interface and
// unwraps to its cause, so errors.Is/As work through it.
type Fault struct {
	// Kind is the failure class.
	Kind Kind
	// Msg is a caller-safe description (no secrets, no internals).
	Msg string
	// Err is the underlying cause. May be nil for pure validation faults.
	Err error
}

// Error returns the message, appending the cause when present.
func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Msg, f.Err)
	}
	return f.Msg
}

// Unwrap returns the underlying cause for errors.Is/As traversal.
func (f *Fault) Unwrap() error { return f.Err }

// New constructs a Fault with the given kind and caller-safe message.
func New(kind Kind, msg string) *Fault {
	return &Fault{Kind: kind, Msg: msg}
}

// Wrap constructs a Fault wrapping err. Returns nil when err is nil so
// call sites can wrap unconditionally.
func Wrap(kind Kind, msg string, err error) *Fault {
	if err == nil {
		return nil
	}
	return &Fault{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from anywhere in err's chain.
// Returns KindUnknown when no Fault is present.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Message returns the caller-safe message of the outermost Fault in err's
// chain, or a generic fallback when err is not classified.
func Message(err error) string {
	var f *Fault
	if errors.As(err, &f) {
		return f.Msg
	}
	return "internal error"
}
