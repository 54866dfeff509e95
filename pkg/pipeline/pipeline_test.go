package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanonone/kektorgraph/pkg/cluster"
	"github.com/sanonone/kektorgraph/pkg/embeddings"
	"github.com/sanonone/kektorgraph/pkg/graph"
	"github.com/sanonone/kektorgraph/pkg/metrics"
)

func twoBlobs(t *testing.T) (*graph.Graph, embeddings.Provider) {
	t.Helper()
	g := graph.New()
	g.AddEdge("a", "b")
	g.AddEdge("c", "d")
	space, err := embeddings.NewSpace(
		[]string{"a", "b", "c", "d"},
		[][]float64{{0, 0}, {0, 1}, {10, 10}, {10, 11}},
	)
	require.NoError(t, err)
	return g, embeddings.NewStaticProvider(space)
}

func sortedClusters(clusters [][]string) [][]string {
	out := make([][]string, len(clusters))
	for i, c := range clusters {
		out[i] = append([]string(nil), c...)
		sort.Strings(out[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func TestPipeline_Run(t *testing.T) {
	g, provider := twoBlobs(t)
	var progress []cluster.Progress
	p := &Pipeline{
		Provider: provider,
		Options:  []cluster.Option{cluster.WithK(2), cluster.WithSeed(1)},
		Observer: func(pr cluster.Progress) { progress = append(progress, pr) },
	}
	runsBefore := testutil.ToFloat64(metrics.ClusteringRuns.WithLabelValues("converged"))

	report, err := p.Run(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, cluster.StateConverged, report.State)
	assert.Equal(t, 4, report.Nodes)
	assert.Equal(t, 2, report.Edges)
	assert.Equal(t, 2, report.Dimensions)
	assert.Equal(t, 2, report.K)
	assert.Equal(t, []string{"a", "b", "c", "d"}, report.Keys)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, sortedClusters(report.Clusters))
	assert.Equal(t, report.Labels[0], report.Labels[1])
	assert.NotEqual(t, report.Labels[0], report.Labels[2])
	assert.Len(t, progress, report.Iterations)
	assert.Zero(t, report.Movement)
	assert.Empty(t, report.PlotPath)

	assert.Equal(t, runsBefore+1, testutil.ToFloat64(metrics.ClusteringRuns.WithLabelValues("converged")))
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.GraphNodes))

	data, err := json.Marshal(report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "converged", decoded["state"])
	assert.NotContains(t, decoded, "Space")
}

func TestPipeline_Plot(t *testing.T) {
	g, provider := twoBlobs(t)
	path := filepath.Join(t.TempDir(), "clusters.png")
	p := &Pipeline{
		Provider: provider,
		Options:  []cluster.Option{cluster.WithK(2), cluster.WithSeed(3)},
		PlotPath: path,
	}
	report, err := p.Run(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, path, report.PlotPath)
	_, err = os.Stat(path)
	assert.NoError(t, err)

	p.PlotPath = filepath.Join(t.TempDir(), "clusters.unknown")
	report, err = p.Run(context.Background(), g)
	require.NoError(t, err, "rendering failures do not fail the run")
	assert.Empty(t, report.PlotPath)
}

func TestPipeline_Errors(t *testing.T) {
	g, provider := twoBlobs(t)

	_, err := (&Pipeline{}).Run(context.Background(), g)
	assert.Error(t, err)

	_, err = (&Pipeline{Provider: provider}).Run(context.Background(), graph.New())
	assert.Error(t, err)

	_, err = (&Pipeline{Provider: provider}).Run(context.Background(), g)
	assert.ErrorIs(t, err, cluster.ErrInvalidK)

	p := &Pipeline{Provider: provider, Options: []cluster.Option{cluster.WithK(5)}}
	_, err = p.Run(context.Background(), g)
	assert.ErrorIs(t, err, cluster.ErrInsufficientNodes)

	g.AddEdge("d", "e")
	p = &Pipeline{Provider: provider, Options: []cluster.Option{cluster.WithK(2)}}
	_, err = p.Run(context.Background(), g)
	assert.ErrorIs(t, err, embeddings.ErrMissingNode)
}
