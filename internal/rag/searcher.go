package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/calder-n/notewise/internal/fault"
	"github.com/calder-n/notewise/internal/logging"
)

// batchGroupSize is the number of queries processed concurrently per batch
// group. Groups run strictly in sequence, so this bounds peak concurrent
// outbound embed+query calls and keeps the embedding and index backends
// from being overwhelmed.
const batchGroupSize = 3

// SearchOptions are the per-call knobs for a similarity search. Zero
// values fall back to the defaults configured on the searcher.
type SearchOptions struct {
	// TopK is the maximum number of candidates requested from the index
	// before threshold filtering.
	TopK int

	// Threshold is the minimum raw similarity score a match must reach to
	// be returned. Must be in [0, 1].
	Threshold float32
}

// VectorSearcher implements Searcher by embedding the query text and
// delegating nearest-neighbour search to a VectorStore. It holds no
// per-request mutable state, so a single instance is safe to share across
// requests.
type VectorSearcher struct {
	// embedder converts query text to a dense vector.
	embedder Embedder

	// store performs the vector similarity search.
	store VectorStore

	// defaults fills in zero-valued SearchOptions fields per call.
	defaults SearchOptions
}

// NewSearcher constructs a VectorSearcher. defaults.TopK falls back to 10
// and defaults.Threshold to 0.5 when zero.
func NewSearcher(embedder Embedder, store VectorStore, defaults SearchOptions) (*VectorSearcher, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if defaults.TopK <= 0 {
		defaults.TopK = 10
	}
	if defaults.Threshold <= 0 {
		defaults.Threshold = 0.5
	}

	return &VectorSearcher{
		embedder: embedder,
		store:    store,
		defaults: defaults,
	}, nil
}

// Search embeds the query, fetches the topK nearest entries, drops matches
// below the threshold, and normalizes the surviving scores against the
// maximum. The result is ordered highest score first. An empty result set
// from the index is an empty slice, not an error.
//
// Timing for both external calls is logged at debug level; the log entries
// are purely observational and never affect control flow.
func (s *VectorSearcher) Search(ctx context.Context, query string, opts SearchOptions) ([]Match, error) {
	opts = s.withDefaults(opts)
	log := logging.FromContext(ctx)

	embedStart := time.Now()
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		// Embedding failures are propagated, not swallowed — the caller
		// decides whether a degraded answer without context is acceptable.
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fault.New(fault.KindEmbedding, "embedder returned no vector for query")
	}
	embedElapsed := time.Since(embedStart)

	queryStart := time.Now()
	candidates, err := s.store.Query(ctx, vectors[0], opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("rag: query index: %w", err)
	}
	queryElapsed := time.Since(queryStart)

	matches := filterAndNormalize(candidates, opts.Threshold)

	log.Debug("search completed",
		slog.Duration("embed_latency", embedElapsed),
		slog.Duration("search_latency", queryElapsed),
		slog.Int("candidates", len(candidates)),
		slog.Int("matches", len(matches)),
	)

	return matches, nil
}

// SearchAll runs a similarity search for each query with bounded
// concurrency: queries are partitioned into fixed groups of batchGroupSize
// and each group's searches run concurrently, but group i+1 does not start
// until group i has fully completed. Results are keyed by the original
// query string. The first error aborts the batch.
func (s *VectorSearcher) SearchAll(ctx context.Context, queries []string, opts SearchOptions) (map[string][]Match, error) {
	results := make(map[string][]Match, len(queries))
	var mu sync.Mutex

	for start := 0; start < len(queries); start += batchGroupSize {
		end := start + batchGroupSize
		if end > len(queries) {
			end = len(queries)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, q := range queries[start:end] {
			g.Go(func() error {
				matches, err := s.Search(gctx, q, opts)
				if err != nil {
					return fmt.Errorf("query %q: %w", q, err)
				}
				mu.Lock()
				results[q] = matches
				mu.Unlock()
				return nil
			})
		}
		// The group as a whole is awaited before the next group begins.
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("rag: batch search: %w", err)
		}
	}

	return results, nil
}

// withDefaults fills zero-valued option fields from the configured defaults.
func (s *VectorSearcher) withDefaults(opts SearchOptions) SearchOptions {
	if opts.TopK <= 0 {
		opts.TopK = s.defaults.TopK
	}
	if opts.Threshold <= 0 {
		opts.Threshold = s.defaults.Threshold
	}
	return opts
}

// filterAndNormalize drops candidates below threshold, orders the
// survivors highest raw score first, and fills in NormalizedScore by
// dividing each raw score by the maximum surviving score. A zero maximum
// passes raw scores through unchanged.
func filterAndNormalize(candidates []Match, threshold float32) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, m := range candidates {
		if m.Score >= threshold {
			matches = append(matches, m)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) == 0 {
		return matches
	}

	max := matches[0].Score
	for i := range matches {
		if max > 0 {
			matches[i].NormalizedScore = matches[i].Score / max
		} else {
			matches[i].NormalizedScore = matches[i].Score
		}
	}

	return matches
}
