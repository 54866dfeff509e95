// Package commands implements the kektorgraph command line.
package commands

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/sanonone/kektorgraph/internal/config"
	"github.com/sanonone/kektorgraph/internal/logger"
)

var (
	configPath string
	logJSON    bool
	logLevel   string

	// cfg is loaded by the root PersistentPreRunE before any subcommand runs.
	cfg config.Config
)

// RootCmd is the kektorgraph entry point.
var RootCmd = &cobra.Command{
	Use:   "kektorgraph",
	Short: "Cluster the nodes of a directed graph",
	Long: `kektorgraph learns node2vec embeddings for the nodes of a directed graph and
groups them with k-means.

Available commands:
  cluster  - Embed an edge list and cluster its nodes
  embed    - Embed an edge list and write the vectors to a file
  serve    - Start the HTTP API
  mcp      - Serve the MCP tools over stdio
  version  - Show build information

Examples:
  kektorgraph cluster edges.csv --k 8 --seed 1 --plot clusters.png
  kektorgraph embed edges.csv --out nodes.emb --precision float16
  kektorgraph serve --config kektorgraph.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-json") {
			loaded.Log.JSON = logJSON
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Log.Level = logLevel
		}
		if err := logger.Initialize(loaded.Log.JSON, loaded.Log.Level); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		cfg = loaded
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path of the YAML configuration file")
	RootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit JSON logs")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")

	RootCmd.AddCommand(ClusterCmd)
	RootCmd.AddCommand(EmbedCmd)
	RootCmd.AddCommand(ServeCmd)
	RootCmd.AddCommand(MCPCmd)
	RootCmd.AddCommand(VersionCmd)
}
