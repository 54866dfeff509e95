package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanonone/kektorgraph/internal/version"
	"github.com/sanonone/kektorgraph/pkg/cluster"
	"github.com/sanonone/kektorgraph/pkg/embeddings"
	"github.com/sanonone/kektorgraph/pkg/pipeline"
)

// execute runs the root command with args. Flag values persist across
// Execute calls, so every flag is reset first.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset(RootCmd.PersistentFlags())
	for _, c := range RootCmd.Commands() {
		reset(c.Flags())
	}

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	_, err := RootCmd.ExecuteC()
	return out.String(), err
}

func writeEdgeList(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("from-node-id,to-node-id\n")
	for _, prefix := range []string{"a", "b"} {
		for i := 0; i < 5; i++ {
			fmt.Fprintf(&b, "%s%d,%s%d\n", prefix, i, prefix, (i+1)%5)
			fmt.Fprintf(&b, "%s%d,%s%d\n", prefix, i, prefix, (i+2)%5)
		}
	}
	path := filepath.Join(t.TempDir(), "edges.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

var smallEmbedding = []string{"--dimensions", "8", "--walk-length", "10", "--num-walks", "4", "--epochs", "1", "--embed-seed", "7"}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version", "--json")
	require.NoError(t, err)

	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info.Version)

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "kektorgraph "))
}

func TestEmbedThenCluster(t *testing.T) {
	edges := writeEdgeList(t)
	dir := t.TempDir()
	embPath := filepath.Join(dir, "nodes.emb")

	out, err := execute(t, append([]string{"embed", edges, "--out", embPath, "--precision", "float16"}, smallEmbedding...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 10 vectors of 8 dimensions")

	space, err := embeddings.Load(embPath)
	require.NoError(t, err)
	assert.Equal(t, 10, space.Len())

	reportPath := filepath.Join(dir, "report.json")
	plotPath := filepath.Join(dir, "clusters.png")
	_, err = execute(t, "cluster", edges,
		"--embeddings", embPath,
		"--k", "2", "--seed", "1",
		"--out", reportPath, "--plot", plotPath)
	require.NoError(t, err)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report pipeline.Report
	require.NoError(t, json.Unmarshal(data, &report))

	assert.Equal(t, 10, report.Nodes)
	assert.Equal(t, 20, report.Edges)
	assert.Equal(t, 2, report.K)
	assert.Equal(t, 8, report.Dimensions)
	assert.Contains(t, []cluster.State{cluster.StateConverged, cluster.StateMaxIterationsReached}, report.State)
	assert.Len(t, report.Labels, 10)
	members := 0
	for _, c := range report.Clusters {
		members += len(c)
	}
	assert.Equal(t, 10, members)
	assert.Equal(t, plotPath, report.PlotPath)
	assert.FileExists(t, plotPath)
}

func TestClusterCmd_CacheAndStdout(t *testing.T) {
	edges := writeEdgeList(t)
	cache := filepath.Join(t.TempDir(), "cache.emb")

	out, err := execute(t, append([]string{"cluster", edges, "--k", "3", "--seed", "2", "--cache", cache}, smallEmbedding...)...)
	require.NoError(t, err)
	assert.FileExists(t, cache)

	var report pipeline.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.K)
	assert.Len(t, report.Keys, 10)
}

func TestClusterCmd_Errors(t *testing.T) {
	edges := writeEdgeList(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{"cluster", filepath.Join(t.TempDir(), "none.csv")}},
		{"k above node count", append([]string{"cluster", edges, "--k", "11"}, smallEmbedding...)},
		{"invalid k", []string{"cluster", edges, "--k", "0"}},
		{"bad policy", []string{"cluster", edges, "--empty-cluster-policy", "drop"}},
		{"bad delimiter", []string{"cluster", edges, "--delimiter", ";;"}},
		{"no args", []string{"cluster"}},
		{"embed without out", []string{"embed", edges}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range RootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"cluster", "embed", "serve", "mcp", "version"} {
		assert.True(t, names[want], want)
	}
	serve, _, err := RootCmd.Find([]string{"server"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())
}
