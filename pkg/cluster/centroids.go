package cluster

import (
	"context"
	"math/rand"
	"slices"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/sanonone/kektorgraph/pkg/core/distance"
)

// CentroidSet holds one representative vector per cluster. A new set is
// built every iteration; sets are never mutated after construction.
type CentroidSet [][]float64

// K returns the number of centroids.
func (c CentroidSet) K() int { return len(c) }

// Dim returns the centroid dimension, 0 for an empty set.
func (c CentroidSet) Dim() int {
	if len(c) == 0 {
		return 0
	}
	return len(c[0])
}

// Clone returns a deep copy.
func (c CentroidSet) Clone() CentroidSet {
	out := make(CentroidSet, len(c))
	for i, v := range c {
		out[i] = slices.Clone(v)
	}
	return out
}

// Initialize samples k distinct nodes uniformly without replacement and
// copies their vectors as the initial centroids. It also returns the sampled
// node indices.
func Initialize(space Space, k int, rng *rand.Rand) (CentroidSet, []int, error) {
	if k < 1 {
		return nil, nil, ErrInvalidK
	}
	n := space.Len()
	if n < k {
		return nil, nil, insufficientNodes(n, k)
	}
	seeds := rng.Perm(n)[:k]
	centroids := make(CentroidSet, k)
	for i, node := range seeds {
		centroids[i] = slices.Clone(space.Vector(node))
	}
	return centroids, seeds, nil
}

// EmptyClusterPolicy decides what happens to a group with no members.
type EmptyClusterPolicy int

const (
	// RetainPrevious keeps the group's previous centroid.
	RetainPrevious EmptyClusterPolicy = iota
	// FailOnEmpty aborts the run with ErrDegenerateCluster.
	FailOnEmpty
)

func (p EmptyClusterPolicy) String() string {
	switch p {
	case RetainPrevious:
		return "retain"
	case FailOnEmpty:
		return "fail"
	default:
		return "unknown"
	}
}

// ParseEmptyClusterPolicy maps "retain" and "fail" to a policy. The empty
// string selects RetainPrevious.
func ParseEmptyClusterPolicy(s string) (EmptyClusterPolicy, error) {
	switch s {
	case "", "retain":
		return RetainPrevious, nil
	case "fail":
		return FailOnEmpty, nil
	default:
		return RetainPrevious, errors.Newf("unknown empty cluster policy %q", s)
	}
}

// UpdateCentroids recomputes each group's centroid as the element-wise mean
// of its members. previous supplies the centroid of empty groups under
// RetainPrevious. The returned slice lists the groups that were empty.
func UpdateCentroids(ctx context.Context, space Space, p Partition, previous CentroidSet, policy EmptyClusterPolicy, workers int) (CentroidSet, []int, error) {
	k := p.K()
	if previous.K() != k {
		return nil, nil, errors.Wrapf(ErrCentroidCount, "partition has %d groups, previous set %d centroids", k, previous.K())
	}

	var empty []int
	for g, members := range p.groups {
		if len(members) > 0 {
			continue
		}
		if policy == FailOnEmpty {
			return nil, nil, errors.Wrapf(ErrDegenerateCluster, "cluster %d has no members", g)
		}
		empty = append(empty, g)
	}

	next := make(CentroidSet, k)
	dim := space.Dim()
	update := func(g int) {
		members := p.groups[g]
		if len(members) == 0 {
			next[g] = slices.Clone(previous[g])
			return
		}
		next[g] = mean(space, members, dim)
	}

	if workers <= 1 || k == 1 {
		for g := 0; g < k; g++ {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			update(g)
		}
		return next, empty, nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for g := 0; g < k; g++ {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			update(g)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return next, empty, nil
}

// mean sums members in ascending index order so the result is identical no
// matter which goroutine computes it.
func mean(space Space, members []int, dim int) []float64 {
	sum := make([]float64, dim)
	for _, node := range members {
		v := space.Vector(node)
		for d := 0; d < dim && d < len(v); d++ {
			sum[d] += v[d]
		}
	}
	count := float64(len(members))
	for d := range sum {
		sum[d] /= count
	}
	return sum
}

// Movement returns the sum over all centroid indices of the Euclidean
// distance between the old and the new centroid.
func Movement(old, next CentroidSet) (float64, error) {
	if old.K() != next.K() {
		return 0, errors.Wrapf(ErrCentroidCount, "%d != %d", old.K(), next.K())
	}
	var total float64
	for i := range old {
		d, err := distance.Euclidean(old[i], next[i])
		if err != nil {
			return 0, errors.Wrapf(err, "centroid %d", i)
		}
		total += d
	}
	return total, nil
}

// Converged reports whether the centroids moved by at most tolerance in
// total. With tolerance 0 every centroid must be element-wise equal to its
// predecessor; the summed distance can underflow to zero for tiny moves. The
// measured movement is returned alongside.
func Converged(old, next CentroidSet, tolerance float64) (bool, float64, error) {
	movement, err := Movement(old, next)
	if err != nil {
		return false, 0, err
	}
	if tolerance == 0 {
		for i := range old {
			if !slices.Equal(old[i], next[i]) {
				return false, movement, nil
			}
		}
		return true, movement, nil
	}
	return movement <= tolerance, movement, nil
}
