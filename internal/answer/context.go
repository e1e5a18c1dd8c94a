// Package answer composes the generation side of the query path: it
// formats retrieved notes into a bounded context block, selects a model
// variant, and invokes the chat model with the composed message sequence.
package answer

import (
	"strings"

	"github.com/calder-n/notewise/internal/note"
)

// instruction is the fixed system message sent with every generation
// request. It is always a separate message from the context block — the
// two are never merged, and the context message is omitted entirely (not
// sent empty) when no notes were retrieved.
const instruction = "When answering the question or responding, use the context provided, if it is provided and relevant."

// BuildContext formats the given notes into the context block injected
// ahead of the instruction message. Notes must already be in display
// order (descending match score). An empty input yields the empty string,
// which callers must treat as "send no context message at all".
func BuildContext(notes []note.Note) string {
	if len(notes) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Context:\n")
	for _, n := range notes {
		sb.WriteString("- ")
		sb.WriteString(n.Text)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
