package commands

import (
	"encoding/json"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sanonone/kektorgraph/internal/logger"
	"github.com/sanonone/kektorgraph/pkg/embeddings"
	"github.com/sanonone/kektorgraph/pkg/graph"
)

// addInputFlags registers the edge list layout flags.
func addInputFlags(fs *pflag.FlagSet) {
	fs.String("from", "", "Source node column (default from config)")
	fs.String("to", "", "Target node column (default from config)")
	fs.String("delimiter", "", "Field delimiter (default from config)")
	fs.Bool("no-header", false, "The edge list has no header row; columns are 0 and 1")
}

// addNode2VecFlags registers the embedding parameters that commonly change
// between runs. The rest come from the config file.
func addNode2VecFlags(fs *pflag.FlagSet) {
	fs.Int("dimensions", 0, "Embedding dimensions")
	fs.Int("walk-length", 0, "Nodes per random walk")
	fs.Int("num-walks", 0, "Walks started from each node")
	fs.Int("window", 0, "Skip-gram context window")
	fs.Float64("p", 0, "node2vec return parameter")
	fs.Float64("q", 0, "node2vec in-out parameter")
	fs.Int("epochs", 0, "Skip-gram training epochs")
	fs.Int64("embed-seed", 0, "Seed for walks and training")
}

// loadGraph reads the edge list at path using the input section of the
// config, overridden by the flags that were set.
func loadGraph(cmd *cobra.Command, path string) (*graph.Graph, error) {
	input := cfg.Input
	fs := cmd.Flags()
	if fs.Changed("from") {
		input.FromColumn, _ = fs.GetString("from")
	}
	if fs.Changed("to") {
		input.ToColumn, _ = fs.GetString("to")
	}
	if fs.Changed("delimiter") {
		input.Delimiter, _ = fs.GetString("delimiter")
		if len([]rune(input.Delimiter)) != 1 {
			return nil, errors.Newf("delimiter must be a single character, got %q", input.Delimiter)
		}
	}
	if fs.Changed("no-header") {
		input.NoHeader, _ = fs.GetBool("no-header")
	}

	g, err := graph.LoadEdgeListFile(path, input.EdgeListOptions())
	if err != nil {
		return nil, err
	}
	logger.Logger.Infow("edge list loaded",
		logger.FieldPath, path,
		logger.FieldNodes, g.NodeCount(),
		logger.FieldEdges, g.EdgeCount(),
	)
	return g, nil
}

// node2vecFromFlags returns the configured node2vec parameters with flag
// overrides applied.
func node2vecFromFlags(cmd *cobra.Command) (embeddings.Node2Vec, error) {
	n := cfg.Embedding.Node2Vec
	fs := cmd.Flags()
	if fs.Changed("dimensions") {
		n.Dimensions, _ = fs.GetInt("dimensions")
	}
	if fs.Changed("walk-length") {
		n.WalkLength, _ = fs.GetInt("walk-length")
	}
	if fs.Changed("num-walks") {
		n.NumWalks, _ = fs.GetInt("num-walks")
	}
	if fs.Changed("window") {
		n.Window, _ = fs.GetInt("window")
	}
	if fs.Changed("p") {
		n.P, _ = fs.GetFloat64("p")
	}
	if fs.Changed("q") {
		n.Q, _ = fs.GetFloat64("q")
	}
	if fs.Changed("epochs") {
		n.Epochs, _ = fs.GetInt("epochs")
	}
	if fs.Changed("embed-seed") {
		n.Seed, _ = fs.GetInt64("embed-seed")
	}
	n.Logger = logger.Named("node2vec")
	if err := n.Validate(); err != nil {
		return n, err
	}
	return n, nil
}

// writeJSON writes v to path, or to the command output when path is empty.
func writeJSON(cmd *cobra.Command, path string, v any) (err error) {
	var w io.Writer = cmd.OutOrStdout()
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "create output file")
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
