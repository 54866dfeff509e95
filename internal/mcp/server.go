package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/sanonone/kektorgraph/internal/config"
	"github.com/sanonone/kektorgraph/internal/version"
)

// NewMCPServer exposes clustering and embedding as MCP tools.
func NewMCPServer(cfg config.Config, log *zap.Logger) *mcp.Server {
	service := NewService(cfg, log)

	s := mcp.NewServer(&mcp.Implementation{
		Name:    "kektorgraph",
		Version: version.Version,
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "cluster_graph",
		Description: "Group the nodes of a directed graph into k clusters of structurally similar nodes (node2vec embeddings + k-means).",
	}, service.ClusterGraph)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "embed_graph",
		Description: "Learn node2vec embeddings for a directed graph, optionally save them and list each node's nearest neighbours.",
	}, service.EmbedGraph)

	return s
}
