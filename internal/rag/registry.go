package rag

import (
	"fmt"
	"sort"
)

// Strategy tags a search capability variant. Strategies are selected by
// configuration; adding one means registering another Searcher under a new
// tag, not subclassing.
type Strategy string

// StrategySemantic is the embed-and-nearest-neighbour strategy and the
// only one shipped today.
const StrategySemantic Strategy = "semantic"

// Registry maps strategy tags to Searcher implementations. It is
// populated once at startup and read-only afterwards, so it is safe to
// share across requests.
type Registry struct {
	// searchers maps strategy tag to its implementation.
	searchers map[Strategy]Searcher
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{searchers: make(map[Strategy]Searcher)}
}

// Register adds a searcher under the given tag, replacing any previous
// registration. Call only during startup wiring.
func (r *Registry) Register(tag Strategy, s Searcher) {
	r.searchers[tag] = s
}

// Lookup returns the searcher registered under tag. An empty tag resolves
// to StrategySemantic.
func (r *Registry) Lookup(tag Strategy) (Searcher, error) {
	if tag == "" {
		tag = StrategySemantic
	}
	s, ok := r.searchers[tag]
	if !ok {
		return nil, fmt.Errorf("rag: unknown search strategy %q (registered: %v)", tag, r.tags())
	}
	return s, nil
}

// tags returns the sorted list of registered strategy tags for error text.
func (r *Registry) tags() []string {
	out := make([]string, 0, len(r.searchers))
	for tag := range r.searchers {
		out = append(out, string(tag))
	}
	sort.Strings(out)
	return out
}
