package embeddings

import (
	"context"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/sanonone/kektorgraph/pkg/graph"
)

// passSeedStride separates the RNG streams of consecutive walk passes.
const passSeedStride = 0x9E3779B97F4A7C15 >> 1

// generateWalks runs NumWalks passes over the graph. Each pass visits every
// node once, in an order shuffled by the pass RNG, and starts one walk from
// it. Passes run concurrently; pass w writes walks[w*N : (w+1)*N], so the
// output does not depend on scheduling.
func (n *Node2Vec) generateWalks(ctx context.Context, g *graph.Graph) ([][]int64, error) {
	nodes := g.NodeCount()
	adj := newAdjacency(g)
	walks := make([][]int64, n.NumWalks*nodes)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(n.workers())
	for pass := 0; pass < n.NumWalks; pass++ {
		eg.Go(func() error {
			rng := rand.New(rand.NewSource(n.Seed + int64(pass+1)*passSeedStride))
			out := walks[pass*nodes : (pass+1)*nodes]
			for i, start := range rng.Perm(nodes) {
				if i%256 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				out[i] = n.walk(adj, int64(start), rng)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return walks, nil
}

// adjacency is a read-only snapshot of successor lists so walkers do not
// touch the gonum graph concurrently.
type adjacency struct {
	succ [][]int64
	// has[v] holds the successors of v for O(1) edge tests.
	has []map[int64]struct{}
}

func newAdjacency(g *graph.Graph) *adjacency {
	n := g.NodeCount()
	a := &adjacency{
		succ: make([][]int64, n),
		has:  make([]map[int64]struct{}, n),
	}
	for id := int64(0); id < int64(n); id++ {
		s := g.Successors(id)
		a.succ[id] = s
		set := make(map[int64]struct{}, len(s))
		for _, t := range s {
			set[t] = struct{}{}
		}
		a.has[id] = set
	}
	return a
}

func (a *adjacency) hasEdge(from, to int64) bool {
	_, ok := a.has[from][to]
	return ok
}

// walk performs one biased walk of at most WalkLength nodes from start. The
// first step is uniform; later steps weight a candidate x reached from cur
// (having arrived from prev) by 1/p when x == prev, 1 when prev -> x exists
// and 1/q otherwise. The walk ends early at a node without successors.
func (n *Node2Vec) walk(a *adjacency, start int64, rng *rand.Rand) []int64 {
	path := make([]int64, 1, n.WalkLength)
	path[0] = start
	weights := make([]float64, 0, 8)

	for len(path) < n.WalkLength {
		cur := path[len(path)-1]
		succ := a.succ[cur]
		if len(succ) == 0 {
			break
		}
		if len(path) == 1 || (n.P == 1 && n.Q == 1) {
			path = append(path, succ[rng.Intn(len(succ))])
			continue
		}

		prev := path[len(path)-2]
		weights = weights[:0]
		total := 0.0
		for _, x := range succ {
			w := 1.0
			switch {
			case x == prev:
				w = 1 / n.P
			case a.hasEdge(prev, x):
			default:
				w = 1 / n.Q
			}
			weights = append(weights, w)
			total += w
		}
		path = append(path, succ[pick(weights, total, rng)])
	}
	return path
}

// pick samples an index proportionally to weights.
func pick(weights []float64, total float64, rng *rand.Rand) int {
	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}
	return len(weights) - 1
}
