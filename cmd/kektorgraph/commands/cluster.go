package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sanonone/kektorgraph/internal/logger"
	"github.com/sanonone/kektorgraph/pkg/cluster"
	"github.com/sanonone/kektorgraph/pkg/embeddings"
	"github.com/sanonone/kektorgraph/pkg/pipeline"
)

// ClusterCmd embeds an edge list and clusters its nodes.
var ClusterCmd = &cobra.Command{
	Use:   "cluster <edges.csv>",
	Short: "Embed an edge list and cluster its nodes",
	Long: `Read a directed graph from a delimited edge list, learn node2vec embeddings
and partition the nodes into k clusters. The report is written as JSON.

With --embeddings the vectors are read from a file written by "embed" instead
of being learned. With --cache the file is reused when it covers the graph
and rewritten otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: runCluster,
}

func init() {
	fs := ClusterCmd.Flags()
	fs.Int("k", 0, "Number of clusters (default from config)")
	fs.Int("max-iterations", 0, "Iteration cap")
	fs.Float64("tolerance", 0, "Stop when no centroid moves more than this")
	fs.Int64("seed", 0, "Seed for the initial centroids")
	fs.Int("workers", 0, "Parallel assignment workers")
	fs.String("empty-cluster-policy", "", "retain or fail")
	fs.String("embeddings", "", "Read vectors from this embedding file")
	fs.String("cache", "", "Embedding cache file")
	fs.StringP("out", "o", "", "Write the JSON report here instead of stdout")
	fs.String("plot", "", "Render the final clusters to this image (png, svg, pdf, ...)")
	addInputFlags(fs)
	addNode2VecFlags(fs)
}

func runCluster(cmd *cobra.Command, args []string) error {
	fs := cmd.Flags()
	clustering := cfg.Clustering
	if fs.Changed("k") {
		clustering.K, _ = fs.GetInt("k")
	}
	if fs.Changed("max-iterations") {
		clustering.MaxIterations, _ = fs.GetInt("max-iterations")
	}
	if fs.Changed("tolerance") {
		clustering.Tolerance, _ = fs.GetFloat64("tolerance")
	}
	if fs.Changed("seed") {
		seed, _ := fs.GetInt64("seed")
		clustering.Seed = &seed
	}
	if fs.Changed("workers") {
		clustering.Workers, _ = fs.GetInt("workers")
	}
	if fs.Changed("empty-cluster-policy") {
		clustering.EmptyClusterPolicy, _ = fs.GetString("empty-cluster-policy")
	}
	opts, err := clustering.Options()
	if err != nil {
		return err
	}
	if _, err := cluster.New(opts...); err != nil {
		return err
	}

	provider, err := providerFor(cmd)
	if err != nil {
		return err
	}

	g, err := loadGraph(cmd, args[0])
	if err != nil {
		return err
	}

	log := logger.Named("cluster")
	plotPath, _ := fs.GetString("plot")
	p := &pipeline.Pipeline{
		Provider: provider,
		Options:  opts,
		PlotPath: plotPath,
		Logger:   log,
		Observer: func(pr cluster.Progress) {
			log.Debug("iteration finished",
				zap.Int(logger.FieldIteration, pr.Iteration),
				zap.Float64(logger.FieldMovement, pr.Movement),
				zap.Ints("empty_clusters", pr.EmptyClusters),
			)
		},
	}
	report, err := p.Run(cmd.Context(), g)
	if err != nil {
		return err
	}
	log.Info("clustering finished",
		zap.Int(logger.FieldK, report.K),
		zap.Int("iterations", report.Iterations),
		zap.Stringer("state", report.State),
	)

	out, _ := fs.GetString("out")
	return writeJSON(cmd, out, report)
}

// providerFor picks the embedding source: a fixed file, a cache backed by
// node2vec, or node2vec alone.
func providerFor(cmd *cobra.Command) (embeddings.Provider, error) {
	fs := cmd.Flags()
	if path, _ := fs.GetString("embeddings"); path != "" {
		return &embeddings.FileProvider{Path: path}, nil
	}

	n2v, err := node2vecFromFlags(cmd)
	if err != nil {
		return nil, err
	}

	cache := cfg.Embedding.Cache
	if fs.Changed("cache") {
		cache, _ = fs.GetString("cache")
	}
	if cache == "" {
		return &n2v, nil
	}
	precision, err := cfg.Embedding.PrecisionValue()
	if err != nil {
		return nil, err
	}
	return &embeddings.Cached{
		Path:      cache,
		Fallback:  &n2v,
		Precision: precision,
		Logger:    logger.Named("cluster"),
	}, nil
}
