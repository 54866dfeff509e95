// Package graph holds the directed node graph that embeddings are learned
// from. Nodes are addressed by string keys externally and by dense int64 IDs
// internally; IDs are assigned in first-seen order starting at 0.
package graph

import (
	"slices"

	"github.com/tidwall/btree"
	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Graph is a directed graph without parallel edges. It is not safe for
// concurrent mutation; concurrent reads are fine once building is done.
type Graph struct {
	g *simple.DirectedGraph

	ids  btree.Map[string, int64]
	keys []string

	// gonum simple graphs reject self edges, so loops are tracked here.
	selfLoops map[int64]struct{}
	edges     int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		g:         simple.NewDirectedGraph(),
		selfLoops: make(map[int64]struct{}),
	}
}

// AddNode registers key and returns its ID. Existing keys keep their ID.
func (g *Graph) AddNode(key string) int64 {
	if id, ok := g.ids.Get(key); ok {
		return id
	}
	id := int64(len(g.keys))
	g.ids.Set(key, id)
	g.keys = append(g.keys, key)
	g.g.AddNode(simple.Node(id))
	return id
}

// AddEdge links from -> to, creating both nodes as needed. It reports
// whether a new edge was added.
func (g *Graph) AddEdge(from, to string) bool {
	f := g.AddNode(from)
	t := g.AddNode(to)
	if f == t {
		if _, ok := g.selfLoops[f]; ok {
			return false
		}
		g.selfLoops[f] = struct{}{}
		g.edges++
		return true
	}
	if g.g.HasEdgeFromTo(f, t) {
		return false
	}
	g.g.SetEdge(simple.Edge{F: simple.Node(f), T: simple.Node(t)})
	g.edges++
	return true
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.keys) }

// EdgeCount returns the number of distinct directed edges, self loops
// included.
func (g *Graph) EdgeCount() int { return g.edges }

// Nodes returns all keys in ID order.
func (g *Graph) Nodes() []string { return slices.Clone(g.keys) }

// SortedKeys returns all keys in lexical order.
func (g *Graph) SortedKeys() []string {
	out := make([]string, 0, len(g.keys))
	g.ids.Scan(func(key string, _ int64) bool {
		out = append(out, key)
		return true
	})
	return out
}

// ID resolves a key.
func (g *Graph) ID(key string) (int64, bool) { return g.ids.Get(key) }

// Key resolves an ID. It panics on unknown IDs.
func (g *Graph) Key(id int64) string { return g.keys[id] }

// HasEdge reports whether from -> to exists.
func (g *Graph) HasEdge(from, to int64) bool {
	if from == to {
		_, ok := g.selfLoops[from]
		return ok
	}
	return g.g.HasEdgeFromTo(from, to)
}

// Successors returns the IDs reachable over one outgoing edge, ascending.
func (g *Graph) Successors(id int64) []int64 {
	var out []int64
	it := g.g.From(id)
	for it.Next() {
		out = append(out, it.Node().ID())
	}
	if _, ok := g.selfLoops[id]; ok {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// OutDegree returns the number of outgoing edges of id.
func (g *Graph) OutDegree(id int64) int {
	n := g.g.From(id).Len()
	if _, ok := g.selfLoops[id]; ok {
		n++
	}
	return n
}

// Directed exposes the underlying gonum graph for algorithms from the gonum
// graph packages. Self loops are not part of it.
func (g *Graph) Directed() gonumgraph.Directed { return g.g }
