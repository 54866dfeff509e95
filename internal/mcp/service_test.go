package mcp

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanonone/kektorgraph/internal/config"
	"github.com/sanonone/kektorgraph/pkg/embeddings"
)

func testService() *Service {
	cfg := config.Default()
	cfg.Embedding.Dimensions = 4
	cfg.Embedding.WalkLength = 6
	cfg.Embedding.NumWalks = 3
	cfg.Embedding.Epochs = 1
	return NewService(cfg, nil)
}

func ring(prefix string, n int) []EdgeArg {
	var edges []EdgeArg
	for i := 0; i < n; i++ {
		edges = append(edges, EdgeArg{
			From: prefix + string(rune('0'+i)),
			To:   prefix + string(rune('0'+(i+1)%n)),
		})
	}
	return edges
}

func TestNewMCPServer(t *testing.T) {
	assert.NotNil(t, NewMCPServer(config.Default(), nil))
}

func TestClusterGraph(t *testing.T) {
	seed := int64(9)
	edges := append(ring("a", 4), ring("b", 4)...)
	_, res, err := testService().ClusterGraph(context.Background(), nil, ClusterGraphArgs{
		Edges: edges,
		K:     2,
		Seed:  &seed,
	})
	require.NoError(t, err)
	require.Len(t, res.Clusters, 2)
	assert.GreaterOrEqual(t, res.Iterations, 1)
	assert.Contains(t, []string{"converged", "max_iterations_reached"}, res.State)

	var all []string
	for _, c := range res.Clusters {
		all = append(all, c...)
	}
	sort.Strings(all)
	assert.Equal(t, []string{"a0", "a1", "a2", "a3", "b0", "b1", "b2", "b3"}, all)
}

func TestClusterGraph_Errors(t *testing.T) {
	s := testService()
	_, _, err := s.ClusterGraph(context.Background(), nil, ClusterGraphArgs{K: 2})
	assert.Error(t, err, "no edges")

	_, _, err = s.ClusterGraph(context.Background(), nil, ClusterGraphArgs{Edges: []EdgeArg{{From: "a"}}, K: 1})
	assert.Error(t, err, "empty endpoint")

	_, _, err = s.ClusterGraph(context.Background(), nil, ClusterGraphArgs{Edges: ring("a", 3), K: 4})
	assert.Error(t, err, "k above node count")
}

func TestEmbedGraph(t *testing.T) {
	seed := int64(2)
	path := filepath.Join(t.TempDir(), "ring.emb")
	_, res, err := testService().EmbedGraph(context.Background(), nil, EmbedGraphArgs{
		Edges:      ring("n", 5),
		Seed:       &seed,
		Dimensions: 3,
		Output:     path,
		Neighbors:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Nodes)
	assert.Equal(t, 5, res.Edges)
	assert.Equal(t, 3, res.Dimensions)
	assert.Equal(t, path, res.SavedTo)
	require.Len(t, res.Nearest, 5)
	for _, nn := range res.Nearest {
		assert.Len(t, nn.Neighbors, 2)
		assert.NotContains(t, nn.Neighbors, nn.Node)
	}

	saved, err := embeddings.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, saved.Len())
	assert.Equal(t, 3, saved.Dim())
}

func TestNearest(t *testing.T) {
	space, err := embeddings.NewSpace(
		[]string{"a", "b", "c", "d"},
		[][]float64{{0}, {1}, {5}, {-1}},
	)
	require.NoError(t, err)
	got, err := nearest(space, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d"}, got[0].Neighbors, "equal distances break ties by key")
	assert.Equal(t, []string{"a", "d"}, got[1].Neighbors)
	assert.Equal(t, []string{"b", "a"}, got[2].Neighbors)
}
