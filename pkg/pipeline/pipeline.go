// Package pipeline chains graph embedding and k-means clustering into one
// run and summarizes the outcome in a Report.
package pipeline

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/sanonone/kektorgraph/pkg/cluster"
	"github.com/sanonone/kektorgraph/pkg/embeddings"
	"github.com/sanonone/kektorgraph/pkg/graph"
	"github.com/sanonone/kektorgraph/pkg/metrics"
	"github.com/sanonone/kektorgraph/pkg/visualize"
)

// Report is the JSON-serialisable outcome of a pipeline run.
type Report struct {
	Nodes          int                 `json:"nodes"`
	Edges          int                 `json:"edges"`
	Dimensions     int                 `json:"dimensions"`
	K              int                 `json:"k"`
	Keys           []string            `json:"keys"`
	Labels         []int               `json:"labels"`
	Clusters       [][]string          `json:"clusters"`
	Centroids      cluster.CentroidSet `json:"centroids"`
	Iterations     int                 `json:"iterations"`
	State          cluster.State       `json:"state"`
	Movement       float64             `json:"movement"`
	EmptyClusters  int                 `json:"empty_clusters"`
	EmbedSeconds   float64             `json:"embed_seconds"`
	ClusterSeconds float64             `json:"cluster_seconds"`
	PlotPath       string              `json:"plot_path,omitempty"`

	// Space and Result are kept for callers that post-process the run.
	Space  *embeddings.Space `json:"-"`
	Result *cluster.Result   `json:"-"`
}

// Pipeline embeds a graph with Provider and clusters the vectors with
// Options.
type Pipeline struct {
	Provider embeddings.Provider
	Options  []cluster.Option
	// PlotPath, when set, receives a scatter plot of the final clusters.
	// Rendering failures are logged and do not fail the run.
	PlotPath string
	Observer cluster.Observer
	Logger   *zap.Logger
}

// Run executes the pipeline on g.
func (p *Pipeline) Run(ctx context.Context, g *graph.Graph) (*Report, error) {
	if p.Provider == nil {
		return nil, errors.New("pipeline has no embedding provider")
	}
	if g == nil || g.NodeCount() == 0 {
		return nil, errors.New("graph is empty")
	}
	log := zap.NewNop()
	if p.Logger != nil {
		log = p.Logger
	}
	log = log.Named("pipeline")
	metrics.GraphNodes.Set(float64(g.NodeCount()))

	log.Info("embedding graph", zap.Int("nodes", g.NodeCount()), zap.Int("edges", g.EdgeCount()))
	start := time.Now()
	space, err := p.Provider.Embed(ctx, g)
	embedElapsed := time.Since(start)
	metrics.StageDuration.WithLabelValues("embed").Observe(embedElapsed.Seconds())
	if err != nil {
		metrics.ClusteringRuns.WithLabelValues("failed").Inc()
		return nil, errors.Wrap(err, "embed graph")
	}

	opts := append([]cluster.Option{cluster.WithLogger(log)}, p.Options...)
	opts = append(opts, cluster.WithObserver(p.observe))
	c, err := cluster.New(opts...)
	if err != nil {
		metrics.ClusteringRuns.WithLabelValues("failed").Inc()
		return nil, err
	}

	start = time.Now()
	res, err := c.Run(ctx, space)
	clusterElapsed := time.Since(start)
	metrics.StageDuration.WithLabelValues("cluster").Observe(clusterElapsed.Seconds())
	if err != nil {
		metrics.ClusteringRuns.WithLabelValues("failed").Inc()
		return nil, errors.Wrap(err, "cluster embeddings")
	}
	metrics.ClusteringRuns.WithLabelValues(res.State.String()).Inc()
	metrics.ClusteringIterations.Observe(float64(res.Iterations))

	report := newReport(g, space, res)
	report.EmbedSeconds = embedElapsed.Seconds()
	report.ClusterSeconds = clusterElapsed.Seconds()

	if p.PlotPath != "" {
		if err := plot(p.PlotPath, space, res); err != nil {
			log.Warn("could not render cluster plot", zap.String("path", p.PlotPath), zap.Error(err))
		} else {
			report.PlotPath = p.PlotPath
		}
	}
	return report, nil
}

func (p *Pipeline) observe(pr cluster.Progress) {
	metrics.CentroidMovement.Set(pr.Movement)
	metrics.EmptyClusters.Add(float64(len(pr.EmptyClusters)))
	if p.Observer != nil {
		p.Observer(pr)
	}
}

func newReport(g *graph.Graph, space *embeddings.Space, res *cluster.Result) *Report {
	groups := res.Partition.Groups()
	clusters := make([][]string, len(groups))
	for i, members := range groups {
		clusters[i] = make([]string, len(members))
		for j, node := range members {
			clusters[i][j] = space.Key(node)
		}
	}
	return &Report{
		Nodes:         g.NodeCount(),
		Edges:         g.EdgeCount(),
		Dimensions:    space.Dim(),
		K:             res.Centroids.K(),
		Keys:          space.Keys(),
		Labels:        res.Partition.Labels(),
		Clusters:      clusters,
		Centroids:     res.Centroids,
		Iterations:    res.Iterations,
		State:         res.State,
		Movement:      res.Movement,
		EmptyClusters: res.EmptyClusters,
		Space:         space,
		Result:        res,
	}
}

func plot(path string, space *embeddings.Space, res *cluster.Result) error {
	proj, err := visualize.Project(space, res.Centroids)
	if err != nil {
		return err
	}
	return visualize.Render(path, proj, res.Partition, res.Iterations)
}
