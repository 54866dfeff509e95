package visualize

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanonone/kektorgraph/pkg/cluster"
	"github.com/sanonone/kektorgraph/pkg/core/distance"
)

func lineSpace() cluster.Vectors {
	var v cluster.Vectors
	for t := 0.0; t < 4; t++ {
		v = append(v, []float64{t, 2 * t, 2 * t})
	}
	return v
}

func TestProject_Line(t *testing.T) {
	proj, err := Project(lineSpace(), cluster.CentroidSet{{1.5, 3, 3}, {3, 6, 6}})
	require.NoError(t, err)
	require.Len(t, proj.Nodes, 4)

	for i, p := range proj.Nodes {
		assert.InDelta(t, 3*math.Abs(float64(i)-1.5), math.Abs(p.X), 1e-9)
		assert.InDelta(t, 0, p.Y, 1e-9)
	}
	assert.InDelta(t, 0, proj.Centroids[0].X, 1e-9)
	assert.InDelta(t, 4.5, math.Abs(proj.Centroids[1].X), 1e-9)
	assert.InDelta(t, 1, proj.Variance[0], 1e-9)
}

func TestProject_Degenerate(t *testing.T) {
	t.Run("one dimension", func(t *testing.T) {
		proj, err := Project(cluster.Vectors{{1}, {3}}, cluster.CentroidSet{{2}})
		require.NoError(t, err)
		assert.InDelta(t, 1, math.Abs(proj.Nodes[0].X), 1e-9)
		for _, p := range proj.Nodes {
			assert.Zero(t, p.Y)
		}
		assert.InDelta(t, 0, proj.Centroids[0].X, 1e-9)
	})

	t.Run("single node", func(t *testing.T) {
		proj, err := Project(cluster.Vectors{{1, 2}}, cluster.CentroidSet{{1, 2}})
		require.NoError(t, err)
		assert.Zero(t, proj.Nodes[0].X)
		assert.Zero(t, proj.Nodes[0].Y)
	})

	t.Run("empty", func(t *testing.T) {
		proj, err := Project(cluster.Vectors{}, nil)
		require.NoError(t, err)
		assert.Empty(t, proj.Nodes)
	})

	t.Run("centroid dimension", func(t *testing.T) {
		_, err := Project(lineSpace(), cluster.CentroidSet{{1, 2}})
		assert.ErrorIs(t, err, distance.ErrDimensionMismatch)
	})
}

func TestRender(t *testing.T) {
	space := lineSpace()
	partition, err := cluster.NewPartition([]int{0, 0, 1, 1}, 3)
	require.NoError(t, err)
	proj, err := Project(space, cluster.CentroidSet{{0.5, 1, 1}, {2.5, 5, 5}, {9, 9, 9}})
	require.NoError(t, err)

	for _, name := range []string{"clusters.png", "clusters.svg"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Render(path, proj, partition, 4))
			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		})
	}

	t.Run("unsupported extension", func(t *testing.T) {
		err := Render(filepath.Join(t.TempDir(), "clusters.bmp"), proj, partition, 1)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("partition mismatch", func(t *testing.T) {
		short, err := cluster.NewPartition([]int{0}, 1)
		require.NoError(t, err)
		assert.Error(t, Render(filepath.Join(t.TempDir(), "x.png"), proj, short, 1))
	})
}

func TestPlot_Title(t *testing.T) {
	partition, err := cluster.NewPartition([]int{0, 0, 0, 0}, 1)
	require.NoError(t, err)
	proj, err := Project(lineSpace(), cluster.CentroidSet{{1.5, 3, 3}})
	require.NoError(t, err)

	p, err := Plot(proj, partition, 12)
	require.NoError(t, err)
	assert.Equal(t, "Clusters and Centroids ITERATION #12", p.Title.Text)
	assert.Equal(t, "Dimension 1", p.X.Label.Text)
	assert.Equal(t, "Dimension 2", p.Y.Label.Text)
}

func TestClusterColors(t *testing.T) {
	assert.Len(t, clusterColors(1), 1)
	assert.Len(t, clusterColors(5), 5)
	assert.Nil(t, clusterColors(0))
}
