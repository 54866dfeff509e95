package embeddings

import (
	"context"
	"math/rand"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/sanonone/kektorgraph/pkg/graph"
)

// Node2Vec learns node vectors from second-order biased random walks and a
// skip-gram model with negative sampling.
//
// Walk generation runs in parallel and is deterministic for a given Seed,
// whatever the number of workers. Training is sequential.
type Node2Vec struct {
	Dimensions      int     `yaml:"dimensions" json:"dimensions" validate:"gte=1,lte=4096"`
	WalkLength      int     `yaml:"walk_length" json:"walk_length" validate:"gte=1"`
	NumWalks        int     `yaml:"num_walks" json:"num_walks" validate:"gte=1"`
	Window          int     `yaml:"window" json:"window" validate:"gte=1"`
	P               float64 `yaml:"p" json:"p" validate:"gt=0"`
	Q               float64 `yaml:"q" json:"q" validate:"gt=0"`
	Epochs          int     `yaml:"epochs" json:"epochs" validate:"gte=1"`
	Negative        int     `yaml:"negative" json:"negative" validate:"gte=0"`
	LearningRate    float64 `yaml:"learning_rate" json:"learning_rate" validate:"gt=0"`
	MinLearningRate float64 `yaml:"min_learning_rate" json:"min_learning_rate" validate:"gte=0"`
	Workers         int     `yaml:"workers" json:"workers" validate:"gte=0"`
	Seed            int64   `yaml:"seed" json:"seed"`

	Logger *zap.Logger `yaml:"-" json:"-" validate:"-"`
}

// DefaultNode2Vec returns the standard node2vec parameters: 64 dimensions,
// 80 walks of length 100 per node, window 5, unbiased walks (p = q = 1).
func DefaultNode2Vec() Node2Vec {
	return Node2Vec{
		Dimensions:      64,
		WalkLength:      100,
		NumWalks:        80,
		Window:          5,
		P:               1,
		Q:               1,
		Epochs:          5,
		Negative:        5,
		LearningRate:    0.025,
		MinLearningRate: 0.0001,
	}
}

// Validate checks the parameters.
func (n Node2Vec) Validate() error {
	switch {
	case n.Dimensions < 1:
		return errors.Newf("dimensions must be positive, got %d", n.Dimensions)
	case n.WalkLength < 1:
		return errors.Newf("walk length must be positive, got %d", n.WalkLength)
	case n.NumWalks < 1:
		return errors.Newf("walks per node must be positive, got %d", n.NumWalks)
	case n.Window < 1:
		return errors.Newf("window must be positive, got %d", n.Window)
	case n.P <= 0 || n.Q <= 0:
		return errors.Newf("p and q must be positive, got p=%g q=%g", n.P, n.Q)
	case n.Epochs < 1:
		return errors.Newf("epochs must be positive, got %d", n.Epochs)
	case n.Negative < 0:
		return errors.Newf("negative samples must not be negative, got %d", n.Negative)
	case n.LearningRate <= 0 || n.MinLearningRate < 0 || n.MinLearningRate > n.LearningRate:
		return errors.Newf("invalid learning rate schedule %g -> %g", n.LearningRate, n.MinLearningRate)
	}
	return nil
}

func (n Node2Vec) workers() int {
	if n.Workers > 0 {
		return n.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (n Node2Vec) logger() *zap.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return zap.NewNop()
}

// Embed generates the walks for g and trains one vector per node. The
// returned Space follows g's node order.
func (n *Node2Vec) Embed(ctx context.Context, g *graph.Graph) (*Space, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if g == nil || g.NodeCount() == 0 {
		return nil, errors.New("cannot embed an empty graph")
	}
	log := n.logger().Named("node2vec")

	start := time.Now()
	walks, err := n.generateWalks(ctx, g)
	if err != nil {
		return nil, err
	}
	log.Debug("walks generated",
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
		zap.Int("walks", len(walks)),
		zap.Duration("elapsed", time.Since(start)))

	start = time.Now()
	vectors, err := n.train(ctx, walks, g.NodeCount(), rand.New(rand.NewSource(n.Seed)), log)
	if err != nil {
		return nil, err
	}
	log.Debug("skip-gram trained",
		zap.Int("dimensions", n.Dimensions),
		zap.Int("epochs", n.Epochs),
		zap.Duration("elapsed", time.Since(start)))

	return NewSpace(g.Nodes(), vectors)
}
