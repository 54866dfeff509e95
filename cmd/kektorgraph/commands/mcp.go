package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/sanonone/kektorgraph/internal/logger"
	kgmcp "github.com/sanonone/kektorgraph/internal/mcp"
)

// MCPCmd serves the clustering tools to an MCP client over stdio. Logs go
// to stderr so stdout stays a clean protocol stream.
var MCPCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s := kgmcp.NewMCPServer(cfg, logger.Named("mcp"))
		return s.Run(ctx, &mcp.StdioTransport{})
	},
}
