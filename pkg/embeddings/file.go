package embeddings

import (
	"context"
	"io/fs"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/sanonone/kektorgraph/pkg/graph"
	"github.com/sanonone/kektorgraph/pkg/persistence"
)

// FileProvider serves vectors stored by Save.
type FileProvider struct {
	Path string
}

func (p *FileProvider) Embed(ctx context.Context, g *graph.Graph) (*Space, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := Load(p.Path)
	if err != nil {
		return nil, err
	}
	return s.forGraph(g)
}

// Load reads a Space from an embedding file.
func Load(path string) (*Space, error) {
	emb, err := persistence.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewSpace(emb.Keys, emb.Vectors)
}

// Save writes s to path in the given precision.
func Save(path string, s *Space, precision persistence.Precision) error {
	return persistence.SaveFile(path, s.keys, s.vectors, precision)
}

// Cached reads vectors from Path when the file exists and covers every node
// of the graph. Otherwise it embeds with Fallback and writes the result to
// Path.
type Cached struct {
	Path      string
	Fallback  Provider
	Precision persistence.Precision
	Logger    *zap.Logger
}

func (c *Cached) Embed(ctx context.Context, g *graph.Graph) (*Space, error) {
	log := zap.NewNop()
	if c.Logger != nil {
		log = c.Logger
	}
	log = log.Named("embedding-cache").With(zap.String("path", c.Path))

	s, err := Load(c.Path)
	switch {
	case err == nil:
		aligned, err := s.forGraph(g)
		if err == nil {
			log.Debug("embedding cache hit", zap.Int("nodes", aligned.Len()))
			return aligned, nil
		}
		log.Info("embedding cache is stale, recomputing", zap.Error(err))
	case errors.Is(err, fs.ErrNotExist):
		log.Debug("embedding cache miss")
	default:
		log.Warn("embedding cache unreadable, recomputing", zap.Error(err))
	}

	if c.Fallback == nil {
		return nil, errors.Newf("no embeddings at %s and no provider to compute them", c.Path)
	}
	s, err = c.Fallback.Embed(ctx, g)
	if err != nil {
		return nil, err
	}
	precision, err := persistence.ParsePrecision(string(c.Precision))
	if err != nil {
		return nil, err
	}
	if err := Save(c.Path, s, precision); err != nil {
		return nil, errors.Wrap(err, "write embedding cache")
	}
	return s, nil
}
