package visualize

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/sanonone/kektorgraph/pkg/cluster"
)

// Size is the edge length of rendered plots.
const Size = 7 * vg.Inch

// ErrUnsupportedFormat is returned for output paths whose extension gonum/plot
// cannot encode.
var ErrUnsupportedFormat = errors.New("unsupported plot format")

var formats = map[string]bool{
	".png": true, ".svg": true, ".pdf": true,
	".jpg": true, ".jpeg": true, ".eps": true, ".tif": true, ".tiff": true,
}

// Plot builds the scatter plot of a projection: one colour per cluster,
// centroids as black crosses.
func Plot(proj *Projection, partition cluster.Partition, iteration int) (*plot.Plot, error) {
	if proj == nil {
		return nil, errors.New("nil projection")
	}
	if partition.Len() != len(proj.Nodes) {
		return nil, errors.Newf("partition covers %d nodes, projection has %d", partition.Len(), len(proj.Nodes))
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Clusters and Centroids ITERATION #%d", iteration)
	p.X.Label.Text = "Dimension 1"
	p.Y.Label.Text = "Dimension 2"
	p.Add(plotter.NewGrid())

	colors := clusterColors(partition.K())
	for i, members := range partition.Groups() {
		if len(members) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(members))
		for j, node := range members {
			pts[j] = proj.Nodes[node]
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, errors.Wrapf(err, "cluster %d", i)
		}
		s.GlyphStyle.Color = colors[i]
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("Cluster %d", i), s)
	}

	if len(proj.Centroids) > 0 {
		s, err := plotter.NewScatter(proj.Centroids)
		if err != nil {
			return nil, errors.Wrap(err, "centroids")
		}
		s.GlyphStyle.Color = color.Black
		s.GlyphStyle.Shape = draw.CrossGlyph{}
		s.GlyphStyle.Radius = vg.Points(6)
		p.Add(s)
	}
	return p, nil
}

// Render plots the projection and writes it to path. The format follows
// the file extension.
func Render(path string, proj *Projection, partition cluster.Partition, iteration int) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !formats[ext] {
		return errors.Wrapf(ErrUnsupportedFormat, "%q", ext)
	}
	p, err := Plot(proj, partition, iteration)
	if err != nil {
		return err
	}
	if err := p.Save(Size, Size, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}

// clusterColors spreads k hues over the colour wheel.
func clusterColors(k int) []color.Color {
	if k == 0 {
		return nil
	}
	return palette.Rainbow(max(k, 2), palette.Red, palette.Magenta, 1, 0.9, 1).Colors()[:k]
}
