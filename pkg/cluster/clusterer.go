package cluster

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// DefaultMaxIterations caps a run when no other cap is configured.
const DefaultMaxIterations = 1000

// State is a phase of a clustering run.
type State int

const (
	StateInitializing State = iota
	StateIterating
	StateConverged
	StateMaxIterationsReached
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateIterating:
		return "iterating"
	case StateConverged:
		return "converged"
	case StateMaxIterationsReached:
		return "max_iterations_reached"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for _, c := range []State{StateInitializing, StateIterating, StateConverged, StateMaxIterationsReached} {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return errors.Newf("unknown state %q", b)
}

// Progress describes one finished iteration.
type Progress struct {
	Iteration     int
	Movement      float64
	EmptyClusters []int
}

// Observer receives progress after every iteration. It runs on the
// clustering goroutine and must not block for long.
type Observer func(Progress)

// Result is the outcome of a run that reached a terminal state.
type Result struct {
	Centroids     CentroidSet `json:"centroids"`
	Partition     Partition   `json:"partition"`
	Iterations    int         `json:"iterations"`
	State         State       `json:"state"`
	Movement      float64     `json:"movement"`
	EmptyClusters int         `json:"empty_clusters"`
	Seeds         []int       `json:"seeds"`
}

// Options configures a Clusterer.
type Options struct {
	K             int
	MaxIterations int
	// Tolerance is the largest summed centroid movement still treated as
	// converged. Zero requires exact equality.
	Tolerance float64
	Workers   int
	Policy    EmptyClusterPolicy
	Rand      *rand.Rand
	Logger    *zap.Logger
	Observer  Observer
}

// Option mutates Options.
type Option func(*Options)

func WithK(k int) Option { return func(o *Options) { o.K = k } }

func WithMaxIterations(n int) Option { return func(o *Options) { o.MaxIterations = n } }

func WithTolerance(tol float64) Option { return func(o *Options) { o.Tolerance = tol } }

// WithWorkers sets the goroutine count used inside one iteration.
func WithWorkers(n int) Option { return func(o *Options) { o.Workers = n } }

func WithEmptyClusterPolicy(p EmptyClusterPolicy) Option {
	return func(o *Options) { o.Policy = p }
}

// WithRand injects the source used to sample the initial centroids.
func WithRand(r *rand.Rand) Option { return func(o *Options) { o.Rand = r } }

// WithSeed is shorthand for WithRand(rand.New(rand.NewSource(seed))).
func WithSeed(seed int64) Option {
	return func(o *Options) { o.Rand = rand.New(rand.NewSource(seed)) }
}

func WithLogger(l *zap.Logger) Option { return func(o *Options) { o.Logger = l } }

func WithObserver(fn Observer) Option { return func(o *Options) { o.Observer = fn } }

// Clusterer runs k-means over a Space. A Clusterer owns its random source
// and must not be shared between concurrent runs.
type Clusterer struct {
	opts Options
	log  *zap.Logger
}

// New validates the options and returns a Clusterer. Without WithRand or
// WithSeed the random source is seeded from the clock.
func New(opts ...Option) (*Clusterer, error) {
	o := Options{
		MaxIterations: DefaultMaxIterations,
		Workers:       1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.K < 1 {
		return nil, ErrInvalidK
	}
	if o.MaxIterations < 1 {
		return nil, errors.Newf("max iterations must be at least 1, got %d", o.MaxIterations)
	}
	if o.Tolerance < 0 || math.IsNaN(o.Tolerance) {
		return nil, errors.Newf("tolerance must be a non-negative number, got %v", o.Tolerance)
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return &Clusterer{opts: o, log: o.Logger.Named("cluster")}, nil
}

// Options returns a copy of the effective options.
func (c *Clusterer) Options() Options { return c.opts }

// Run clusters space and returns the final centroids and partition. Hitting
// the iteration cap is reported through Result.State, not as an error.
func (c *Clusterer) Run(ctx context.Context, space Space) (*Result, error) {
	k := c.opts.K
	c.log.Debug("initializing", zap.Int("k", k), zap.Int("nodes", space.Len()), zap.Int("dim", space.Dim()))

	centroids, seeds, err := Initialize(space, k, c.opts.Rand)
	if err != nil {
		return nil, err
	}

	res := &Result{Seeds: seeds, State: StateIterating}
	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		partition, err := Assign(ctx, space, centroids, c.opts.Workers)
		if err != nil {
			return nil, errors.Wrapf(err, "assignment step, iteration %d", iteration)
		}

		old := centroids
		next, empty, err := UpdateCentroids(ctx, space, partition, old, c.opts.Policy, c.opts.Workers)
		if err != nil {
			return nil, errors.Wrapf(err, "update step, iteration %d", iteration)
		}

		converged, movement, err := Converged(old, next, c.opts.Tolerance)
		if err != nil {
			return nil, err
		}

		centroids = next
		res.Centroids = centroids
		res.Partition = partition
		res.Iterations = iteration
		res.Movement = movement
		res.EmptyClusters += len(empty)

		c.log.Debug("iteration",
			zap.Int("iteration", iteration),
			zap.Float64("movement", movement),
			zap.Ints("empty_clusters", empty),
		)
		if c.opts.Observer != nil {
			c.opts.Observer(Progress{Iteration: iteration, Movement: movement, EmptyClusters: empty})
		}

		if converged {
			res.State = StateConverged
			break
		}
		if iteration >= c.opts.MaxIterations {
			res.State = StateMaxIterationsReached
			c.log.Warn("iteration cap reached without convergence",
				zap.Int("max_iterations", c.opts.MaxIterations),
				zap.Float64("movement", movement),
			)
			break
		}
	}

	c.log.Info("clustering finished",
		zap.Stringer("state", res.State),
		zap.Int("iterations", res.Iterations),
		zap.Int("empty_clusters", res.EmptyClusters),
	)
	return res, nil
}
