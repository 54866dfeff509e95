package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sanonone/kektorgraph/internal/logger"
	"github.com/sanonone/kektorgraph/internal/server"
)

// ServeCmd starts the HTTP API.
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the HTTP API",
	Long: `Start the HTTP API. Clustering jobs are submitted with POST /v1/cluster and
polled with GET /v1/tasks/{id}. Prometheus metrics are served on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverCfg := cfg
		if cmd.Flags().Changed("addr") {
			serverCfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.NewServer(serverCfg, logger.Named("server")).ListenAndServe(ctx)
	},
}

func init() {
	ServeCmd.Flags().String("addr", "", "Listen address (default from config)")
}
