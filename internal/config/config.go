// Package config defines the YAML configuration shared by the command line,
// the HTTP server and the MCP server.
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/sanonone/kektorgraph/internal/validation"
	"github.com/sanonone/kektorgraph/pkg/cluster"
	"github.com/sanonone/kektorgraph/pkg/embeddings"
	"github.com/sanonone/kektorgraph/pkg/graph"
	"github.com/sanonone/kektorgraph/pkg/persistence"
)

// Config is the top-level configuration file.
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// InputConfig describes the edge list layout.
type InputConfig struct {
	FromColumn string `yaml:"from_column" validate:"required"`
	ToColumn   string `yaml:"to_column" validate:"required"`
	Delimiter  string `yaml:"delimiter" validate:"omitempty,len=1"`
	NoHeader   bool   `yaml:"no_header"`
}

// EmbeddingConfig holds the node2vec parameters and the optional cache file.
type EmbeddingConfig struct {
	embeddings.Node2Vec `yaml:",inline"`

	// Cache is an embedding file reused across runs. Empty disables caching.
	Cache     string `yaml:"cache"`
	Precision string `yaml:"precision" validate:"omitempty,oneof=float64 float32 float16"`
}

// ClusteringConfig holds the k-means parameters.
type ClusteringConfig struct {
	K                  int     `yaml:"k" validate:"gte=1"`
	MaxIterations      int     `yaml:"max_iterations" validate:"gte=1"`
	Tolerance          float64 `yaml:"tolerance" validate:"gte=0"`
	Seed               *int64  `yaml:"seed"`
	Workers            int     `yaml:"workers" validate:"gte=0"`
	EmptyClusterPolicy string  `yaml:"empty_cluster_policy" validate:"omitempty,oneof=retain fail"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	RateLimit       float64       `yaml:"rate_limit" validate:"gte=0"`
	RateBurst       int           `yaml:"rate_burst" validate:"gte=1"`
	MaxEdges        int           `yaml:"max_edges" validate:"gte=1"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	TaskTTL         time.Duration `yaml:"task_ttl"`
	// AuthToken, when set, is required as a Bearer token on /v1 routes.
	AuthToken string `yaml:"auth_token"`
}

// LogConfig selects the log encoder and level.
type LogConfig struct {
	JSON  bool   `yaml:"json"`
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Default returns a working configuration.
func Default() Config {
	return Config{
		Input: InputConfig{
			FromColumn: graph.DefaultFromColumn,
			ToColumn:   graph.DefaultToColumn,
			Delimiter:  ",",
		},
		Embedding: EmbeddingConfig{
			Node2Vec:  embeddings.DefaultNode2Vec(),
			Precision: string(persistence.Float32),
		},
		Clustering: ClusteringConfig{
			K:             8,
			MaxIterations: cluster.DefaultMaxIterations,
		},
		Server: ServerConfig{
			Addr:            ":9191",
			RateLimit:       1,
			RateBurst:       5,
			MaxEdges:        1_000_000,
			ShutdownTimeout: 10 * time.Second,
			TaskTTL:         time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path on top of Default. Environment variables
// in the file are expanded. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), errors.Wrap(err, "failed to read config")
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML from r on top of Default using strict field checking,
// then validates the result.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()

	raw, err := io.ReadAll(r)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	expanded := os.ExpandEnv(string(raw))

	decoder := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, errors.Wrap(err, "YAML syntax error in config")
	}
	return cfg, cfg.Validate()
}

// Validate checks field rules and the cross-field constraints.
func (c Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	if err := c.Embedding.Node2Vec.Validate(); err != nil {
		return errors.Wrap(err, "embedding")
	}
	return nil
}

// EdgeListOptions converts the input section for graph.ReadEdgeList.
func (c InputConfig) EdgeListOptions() graph.EdgeListOptions {
	opts := graph.EdgeListOptions{
		FromColumn: c.FromColumn,
		ToColumn:   c.ToColumn,
		NoHeader:   c.NoHeader,
	}
	if c.Delimiter != "" {
		opts.Delimiter = []rune(c.Delimiter)[0]
	}
	return opts
}

// Options converts the clustering section into cluster options. Without a
// seed the run is seeded from the clock.
func (c ClusteringConfig) Options() ([]cluster.Option, error) {
	policy, err := cluster.ParseEmptyClusterPolicy(c.EmptyClusterPolicy)
	if err != nil {
		return nil, err
	}
	opts := []cluster.Option{
		cluster.WithK(c.K),
		cluster.WithMaxIterations(c.MaxIterations),
		cluster.WithTolerance(c.Tolerance),
		cluster.WithWorkers(c.Workers),
		cluster.WithEmptyClusterPolicy(policy),
	}
	if c.Seed != nil {
		opts = append(opts, cluster.WithSeed(*c.Seed))
	}
	return opts, nil
}

// PrecisionValue returns the parsed embedding file precision.
func (c EmbeddingConfig) PrecisionValue() (persistence.Precision, error) {
	return persistence.ParsePrecision(c.Precision)
}
