package server

import (
	"context"
	"fmt"

	"github.com/calder-n/notewise/internal/note"
	"github.com/calder-n/notewise/internal/rag"
)

// VectorPinger probes the vector index. It satisfies the Pinger interface
// and is used by GET /ready.
type VectorPinger struct {
	// store is the vector store to probe.
	store rag.VectorStore
}

// NewVectorPinger constructs a VectorPinger for the given vector store.
func NewVectorPinger(store rag.VectorStore) *VectorPinger {
	return &VectorPinger{store: store}
}

// Name returns the dependency label used in readiness responses.
func (p *VectorPinger) Name() string { return "qdrant" }

// Ping delegates to the store's native health check.
func (p *VectorPinger) Ping(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// StorePinger probes the note record store.
type StorePinger struct {
	// store is the record store to probe.
	store note.Store
}

// NewStorePinger constructs a StorePinger for the given note store.
func NewStorePinger(store note.Store) *StorePinger {
	return &StorePinger{store: store}
}

// Name returns the dependency label used in readiness responses.
func (p *StorePinger) Name() string { return "notes-db" }

// Ping verifies the database file is reachable and accepting queries.
func (p *StorePinger) Ping(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// EmbedderPinger probes the embedding backend by embedding a single short
// probe string. Embedding calls are cheap relative to generation, so this
// is an acceptable readiness cost.
type EmbedderPinger struct {
	// embedder is the embedding backend to probe.
	embedder rag.Embedder
	// name identifies the backend in readiness responses (e.g. "ollama").
	name string
}

// NewEmbedderPinger constructs an EmbedderPinger for the given backend name.
func NewEmbedderPinger(e rag.Embedder, name string) *EmbedderPinger {
	return &EmbedderPinger{embedder: e, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *EmbedderPinger) Name() string { return p.name }

// Ping sends a one-word embedding request to verify the backend responds.
func (p *EmbedderPinger) Ping(ctx context.Context) error {
	vectors, err := p.embedder.Embed(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embed probe failed: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return fmt.Errorf("embed probe returned no vector")
	}
	return nil
}
