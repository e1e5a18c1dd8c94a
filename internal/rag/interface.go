// Package rag defines the retrieval components for the notewise query
// path: text embedding, vector storage, and similarity search. Concrete
// implementations (Qdrant, Ollama, OpenAI) satisfy these interfaces so
// the HTTP layer never depends on a specific backend.
package rag

import (
	"context"
)

// Entry is the embedding representation of a note, keyed by the owning
// note's id. The metadata carries a truncated copy of the note text plus
// an ISO-8601 timestamp so matches can be displayed without a join-back,
// though the record store remains the canonical source of text.
type Entry struct {
	// ID equals the owning note's id — the join key between the two stores.
	ID string

	// Values is the fixed-dimension embedding vector.
	Values []float32

	// Metadata is the denormalized payload stored alongside the vector.
	Metadata map[string]string
}

// Match is a single similarity-search result. Matches are ephemeral and
// never persisted.
type Match struct {
	// ID is the id of the matched entry (and of its note).
	ID string

	// Score is the raw cosine similarity assigned by the index (0.0–1.0,
	// higher is more similar).
	Score float32

	// NormalizedScore is Score divided by the maximum score in the filtered
	// result set, so results from different queries are comparable. When
	// the maximum raw score is 0, NormalizedScore equals Score.
	NormalizedScore float32

	// Metadata is the payload stored with the vector entry.
	Metadata map[string]string
}

// VectorStore is the interface for persisting and querying embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or updates a batch of entries. Upserting an existing
	// id replaces its vector and payload, so the call is safe to retry.
	Upsert(ctx context.Context, entries []Entry) error

	// Query returns the topK nearest entries to the given vector, highest
	// score first. An empty index yields an empty slice, not an error.
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)

	// Delete removes entries by their ids.
	Delete(ctx context.Context, ids []string) error

	// Ping checks that the index is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector
// embeddings. Implementations must be safe to call from multiple
// goroutines and must reject empty input.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Searcher is the capability interface for similarity search over stored
// notes. The semantic (embed + nearest-neighbour) strategy is the only
// implementation today; future strategies (keyword, metadata filter,
// rerank) register under their own tag in the [Registry] and are selected
// by configuration rather than type hierarchy.
type Searcher interface {
	// Search returns matches for the query, highest score first, with
	// sub-threshold results removed and scores normalized.
	Search(ctx context.Context, query string, opts SearchOptions) ([]Match, error)
}
