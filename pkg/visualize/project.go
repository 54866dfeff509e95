// Package visualize draws a clustering result as a 2D scatter plot.
//
// Node vectors are projected onto their first two principal components;
// centroids are projected with the same fit. Rendering is a side channel:
// the clustering packages never depend on it.
package visualize

import (
	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot/plotter"

	"github.com/sanonone/kektorgraph/pkg/cluster"
	"github.com/sanonone/kektorgraph/pkg/core/distance"
)

// Projection holds 2D coordinates for every node and centroid.
type Projection struct {
	Nodes     plotter.XYs
	Centroids plotter.XYs
	// Variance is the share of total variance explained by each of the
	// two axes. Padded axes explain nothing.
	Variance [2]float64
}

// Project fits a PCA on all node vectors of space and maps nodes and
// centroids onto the first two components. When the data has fewer than
// two components the missing coordinates are zero.
func Project(space cluster.Space, centroids cluster.CentroidSet) (*Projection, error) {
	n, dim := space.Len(), space.Dim()
	proj := &Projection{
		Nodes:     make(plotter.XYs, n),
		Centroids: make(plotter.XYs, len(centroids)),
	}
	if n == 0 || dim == 0 {
		return proj, nil
	}
	for i, c := range centroids {
		if len(c) != dim {
			return nil, errors.Wrapf(&distance.DimensionMismatchError{Left: dim, Right: len(c)}, "centroid %d", i)
		}
	}

	// A single row has no spread; every point sits on the origin.
	if n < 2 {
		return proj, nil
	}

	data := mat.NewDense(n, dim, nil)
	for i := 0; i < n; i++ {
		data.SetRow(i, space.Vector(i))
	}
	means := make([]float64, dim)
	for j := range means {
		means[j] = stat.Mean(mat.Col(nil, j, data), nil)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, errors.New("principal component analysis failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	_, components := vecs.Dims()
	axes := min(components, 2)
	var totalVar float64
	for _, v := range vars {
		totalVar += v
	}
	for a := 0; a < axes; a++ {
		if totalVar > 0 {
			proj.Variance[a] = vars[a] / totalVar
		}
	}

	project := func(v []float64) (x, y float64) {
		coords := [2]float64{}
		for a := 0; a < axes; a++ {
			var s float64
			for j := 0; j < dim; j++ {
				s += (v[j] - means[j]) * vecs.At(j, a)
			}
			coords[a] = s
		}
		return coords[0], coords[1]
	}
	for i := 0; i < n; i++ {
		proj.Nodes[i].X, proj.Nodes[i].Y = project(space.Vector(i))
	}
	for i, c := range centroids {
		proj.Centroids[i].X, proj.Centroids[i].Y = project(c)
	}
	return proj, nil
}
