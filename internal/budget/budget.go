// Package budget provides token budget estimation and retrieved-note
// trimming for the generation prompt. Because notewise supports multiple
// LLM backends with different tokenizers, this package uses a conservative
// character-based heuristic: 1 token ≈ 4 characters (English prose).
// This deliberately under-estimates token counts to leave headroom for
// model-specific overhead.
package budget

import (
	"github.com/cloudwego/eino/schema"

	"github.com/calder-n/notewise/internal/note"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English; using 3 would be
	// more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default budget for the retrieved-note
	// context block, in tokens. Conservative enough to fit within
	// 8k-context models (Llama 3 8B, GPT-3.5) while leaving room for the
	// question and the output.
	DefaultMaxContextTokens = 6000

	// perNoteOverheadTokens covers the bullet prefix and newline each note
	// contributes to the rendered context block.
	perNoteOverheadTokens = 1
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimNotes drops lowest-ranked notes from the tail until the rendered
// context block fits within maxTokens. Notes must already be in display
// order (descending match score), so the best matches survive trimming.
// If even the first note exceeds the budget, the empty slice is returned.
func TrimNotes(notes []note.Note, maxTokens int) []note.Note {
	if len(notes) == 0 {
		return notes
	}

	total := Estimate("Context:\n")
	for i, n := range notes {
		cost := Estimate(n.Text) + perNoteOverheadTokens
		if total+cost > maxTokens {
			return notes[:i]
		}
		total += cost
	}
	return notes
}
