// Package embeddings turns the nodes of a graph into fixed-dimension vectors.
//
// A Provider produces a Space for a graph. Node2Vec learns the vectors from
// biased random walks; StaticProvider and FileProvider return vectors computed
// elsewhere, and Cached combines a file with a fallback provider.
package embeddings

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/sanonone/kektorgraph/pkg/core/distance"
	"github.com/sanonone/kektorgraph/pkg/graph"
)

var (
	// ErrDuplicateKey is returned when two vectors share a node key.
	ErrDuplicateKey = errors.New("duplicate node key")
	// ErrMissingNode is returned when a graph node has no vector.
	ErrMissingNode = errors.New("node has no embedding")
)

// Provider computes one vector per graph node.
type Provider interface {
	Embed(ctx context.Context, g *graph.Graph) (*Space, error)
}

// Space is an immutable set of node vectors sharing one dimension. It
// implements cluster.Space.
type Space struct {
	keys    []string
	vectors [][]float64
	index   map[string]int
	dim     int
}

// NewSpace validates keys and vectors and builds a Space. The slices are
// copied.
func NewSpace(keys []string, vectors [][]float64) (*Space, error) {
	if len(keys) != len(vectors) {
		return nil, errors.Newf("%d keys for %d vectors", len(keys), len(vectors))
	}
	s := &Space{
		keys:    slices.Clone(keys),
		vectors: make([][]float64, len(vectors)),
		index:   make(map[string]int, len(keys)),
	}
	if len(vectors) > 0 {
		s.dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != s.dim {
			return nil, errors.Wrapf(&distance.DimensionMismatchError{Left: s.dim, Right: len(v)},
				"vector %d (%q)", i, keys[i])
		}
		if _, dup := s.index[keys[i]]; dup {
			return nil, errors.Wrapf(ErrDuplicateKey, "%q", keys[i])
		}
		s.index[keys[i]] = i
		s.vectors[i] = slices.Clone(v)
	}
	return s, nil
}

func (s *Space) Len() int { return len(s.vectors) }

func (s *Space) Dim() int { return s.dim }

// Vector returns the i-th vector. Callers must not modify it.
func (s *Space) Vector(i int) []float64 { return s.vectors[i] }

// Key returns the node key of the i-th vector.
func (s *Space) Key(i int) string { return s.keys[i] }

// Keys returns a copy of all keys in index order.
func (s *Space) Keys() []string { return slices.Clone(s.keys) }

// Index resolves a node key.
func (s *Space) Index(key string) (int, bool) {
	i, ok := s.index[key]
	return i, ok
}

// Vectors returns the backing rows in index order. Callers must not modify
// them.
func (s *Space) Vectors() [][]float64 { return s.vectors }

// Select returns a Space holding the given keys in the given order.
func (s *Space) Select(keys []string) (*Space, error) {
	vectors := make([][]float64, len(keys))
	for i, key := range keys {
		j, ok := s.index[key]
		if !ok {
			return nil, errors.Wrapf(ErrMissingNode, "%q", key)
		}
		vectors[i] = s.vectors[j]
	}
	return NewSpace(keys, vectors)
}

// forGraph aligns s with the node order of g. A nil graph returns s as is.
func (s *Space) forGraph(g *graph.Graph) (*Space, error) {
	if g == nil {
		return s, nil
	}
	keys := g.Nodes()
	if slices.Equal(keys, s.keys) {
		return s, nil
	}
	return s.Select(keys)
}

// StaticProvider returns precomputed vectors, reordered to the graph's node
// order. Every graph node must be present in the Space.
type StaticProvider struct {
	Space *Space
}

// NewStaticProvider wraps a Space.
func NewStaticProvider(s *Space) *StaticProvider { return &StaticProvider{Space: s} }

func (p *StaticProvider) Embed(ctx context.Context, g *graph.Graph) (*Space, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Space == nil {
		return nil, errors.New("static provider has no space")
	}
	return p.Space.forGraph(g)
}
