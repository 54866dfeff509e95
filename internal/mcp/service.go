package mcp

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/sanonone/kektorgraph/internal/config"
	"github.com/sanonone/kektorgraph/pkg/core/distance"
	"github.com/sanonone/kektorgraph/pkg/embeddings"
	"github.com/sanonone/kektorgraph/pkg/graph"
	"github.com/sanonone/kektorgraph/pkg/pipeline"
)

// maxNeighbors caps the neighbour list of embed_graph.
const maxNeighbors = 20

type Service struct {
	cfg config.Config
	log *zap.Logger
}

func NewService(cfg config.Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{cfg: cfg, log: log.Named("mcp")}
}

func buildGraph(edges []EdgeArg) (*graph.Graph, error) {
	if len(edges) == 0 {
		return nil, errors.New("at least one edge is required")
	}
	g := graph.New()
	for i, e := range edges {
		if e.From == "" || e.To == "" {
			return nil, errors.Newf("edge %d has an empty endpoint", i)
		}
		g.AddEdge(e.From, e.To)
	}
	return g, nil
}

// node2vec merges tool arguments into the configured parameters.
func (s *Service) node2vec(seed *int64, dims, walkLength, numWalks, epochs int) (*embeddings.Node2Vec, error) {
	n := s.cfg.Embedding.Node2Vec
	if dims > 0 {
		n.Dimensions = dims
	}
	if walkLength > 0 {
		n.WalkLength = walkLength
	}
	if numWalks > 0 {
		n.NumWalks = numWalks
	}
	if epochs > 0 {
		n.Epochs = epochs
	}
	if seed != nil {
		n.Seed = *seed
	}
	n.Logger = s.log
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &n, nil
}

// --- Tool Handlers ---

func (s *Service) ClusterGraph(ctx context.Context, req *mcp.CallToolRequest, args ClusterGraphArgs) (*mcp.CallToolResult, ClusterGraphResult, error) {
	g, err := buildGraph(args.Edges)
	if err != nil {
		return nil, ClusterGraphResult{}, err
	}
	n2v, err := s.node2vec(args.Seed, args.Dimensions, args.WalkLength, args.NumWalks, args.Epochs)
	if err != nil {
		return nil, ClusterGraphResult{}, err
	}

	clustering := s.cfg.Clustering
	clustering.K = args.K
	if args.MaxIterations > 0 {
		clustering.MaxIterations = args.MaxIterations
	}
	if args.Seed != nil {
		clustering.Seed = args.Seed
	}
	opts, err := clustering.Options()
	if err != nil {
		return nil, ClusterGraphResult{}, err
	}

	p := &pipeline.Pipeline{Provider: n2v, Options: opts, Logger: s.log}
	report, err := p.Run(ctx, g)
	if err != nil {
		return nil, ClusterGraphResult{}, err
	}
	return nil, ClusterGraphResult{
		Clusters:      report.Clusters,
		Iterations:    report.Iterations,
		State:         report.State.String(),
		Movement:      report.Movement,
		EmptyClusters: report.EmptyClusters,
	}, nil
}

func (s *Service) EmbedGraph(ctx context.Context, req *mcp.CallToolRequest, args EmbedGraphArgs) (*mcp.CallToolResult, EmbedGraphResult, error) {
	g, err := buildGraph(args.Edges)
	if err != nil {
		return nil, EmbedGraphResult{}, err
	}
	n2v, err := s.node2vec(args.Seed, args.Dimensions, args.WalkLength, args.NumWalks, args.Epochs)
	if err != nil {
		return nil, EmbedGraphResult{}, err
	}
	space, err := n2v.Embed(ctx, g)
	if err != nil {
		return nil, EmbedGraphResult{}, err
	}

	res := EmbedGraphResult{
		Nodes:      g.NodeCount(),
		Edges:      g.EdgeCount(),
		Dimensions: space.Dim(),
	}
	if args.Output != "" {
		precision, err := s.cfg.Embedding.PrecisionValue()
		if err != nil {
			return nil, EmbedGraphResult{}, err
		}
		if err := embeddings.Save(args.Output, space, precision); err != nil {
			return nil, EmbedGraphResult{}, err
		}
		res.SavedTo = args.Output
	}
	if args.Neighbors > 0 {
		res.Nearest, err = nearest(space, min(args.Neighbors, maxNeighbors))
		if err != nil {
			return nil, EmbedGraphResult{}, err
		}
	}
	return nil, res, nil
}

// nearest lists, for every node, the k closest other nodes by Euclidean
// distance. Ties are broken by node key.
func nearest(space *embeddings.Space, k int) ([]NodeNeighbors, error) {
	type candidate struct {
		key  string
		dist float64
	}
	out := make([]NodeNeighbors, space.Len())
	for i := 0; i < space.Len(); i++ {
		cands := make([]candidate, 0, space.Len()-1)
		for j := 0; j < space.Len(); j++ {
			if i == j {
				continue
			}
			d, err := distance.Euclidean(space.Vector(i), space.Vector(j))
			if err != nil {
				return nil, err
			}
			cands = append(cands, candidate{key: space.Key(j), dist: d})
		}
		sort.Slice(cands, func(a, b int) bool {
			if cands[a].dist != cands[b].dist {
				return cands[a].dist < cands[b].dist
			}
			return cands[a].key < cands[b].key
		})
		n := min(k, len(cands))
		out[i] = NodeNeighbors{Node: space.Key(i), Neighbors: make([]string, n)}
		for j := 0; j < n; j++ {
			out[i].Neighbors[j] = cands[j].key
		}
	}
	return out, nil
}
