package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanonone/kektorgraph/internal/validation"
	"github.com/sanonone/kektorgraph/pkg/cluster"
	"github.com/sanonone/kektorgraph/pkg/persistence"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 64, cfg.Embedding.Dimensions)
	assert.Equal(t, 100, cfg.Embedding.WalkLength)
	assert.Equal(t, 80, cfg.Embedding.NumWalks)
	assert.Equal(t, 5, cfg.Embedding.Window)
	assert.Equal(t, cluster.DefaultMaxIterations, cfg.Clustering.MaxIterations)
	assert.Zero(t, cfg.Clustering.Tolerance)
	assert.Nil(t, cfg.Clustering.Seed)
}

func TestParse(t *testing.T) {
	t.Setenv("KG_CACHE_DIR", "/var/cache/kg")
	cfg, err := Parse(strings.NewReader(`
input:
  from_column: src
  to_column: dst
  delimiter: ";"
embedding:
  dimensions: 16
  p: 0.5
  cache: ${KG_CACHE_DIR}/nodes.emb
  precision: float16
clustering:
  k: 3
  seed: 42
  empty_cluster_policy: fail
server:
  addr: ":8080"
  shutdown_timeout: 3s
log:
  json: true
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "src", cfg.Input.FromColumn)
	assert.Equal(t, ';', cfg.Input.EdgeListOptions().Delimiter)
	assert.Equal(t, 16, cfg.Embedding.Dimensions)
	assert.Equal(t, 0.5, cfg.Embedding.P)
	assert.Equal(t, 1.0, cfg.Embedding.Q, "unset fields keep their defaults")
	assert.Equal(t, "/var/cache/kg/nodes.emb", cfg.Embedding.Cache)
	precision, err := cfg.Embedding.PrecisionValue()
	require.NoError(t, err)
	assert.Equal(t, persistence.Float16, precision)
	assert.Equal(t, 3, cfg.Clustering.K)
	require.NotNil(t, cfg.Clustering.Seed)
	assert.Equal(t, int64(42), *cfg.Clustering.Seed)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Log.JSON)

	opts, err := cfg.Clustering.Options()
	require.NoError(t, err)
	c, err := cluster.New(opts...)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Options().K)
	assert.Equal(t, cluster.FailOnEmpty, c.Options().Policy)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default().Clustering, cfg.Clustering)
}

func TestParse_Errors(t *testing.T) {
	testCases := map[string]string{
		"unknown field":   "clustering:\n  kk: 3\n",
		"syntax":          "clustering: [\n",
		"invalid k":       "clustering:\n  k: 0\n",
		"invalid policy":  "clustering:\n  empty_cluster_policy: drop\n",
		"invalid p":       "embedding:\n  p: 0\n",
		"long delimiter":  "input:\n  delimiter: ';;'\n",
		"invalid level":   "log:\n  level: chatty\n",
		"lr out of order": "embedding:\n  min_learning_rate: 0.5\n",
	}
	for name, doc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_ValidationMessage(t *testing.T) {
	_, err := Parse(strings.NewReader("clustering:\n  k: 0\n"))
	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "clustering.k", verr.Fields[0].Field)
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "kektorgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clustering:\n  k: 4\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Clustering.K)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
