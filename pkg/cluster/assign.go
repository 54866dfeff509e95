package cluster

import (
	"context"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/sanonone/kektorgraph/pkg/core/distance"
)

// minNodesPerWorker keeps tiny spaces on a single goroutine.
const minNodesPerWorker = 256

// Assign places every node in the group of its nearest centroid. Centroids
// are scanned in index order and only a strictly smaller distance replaces
// the current best, so equidistant centroids resolve to the lowest index.
// A dimension mismatch aborts the step.
func Assign(ctx context.Context, space Space, centroids CentroidSet, workers int) (Partition, error) {
	k := centroids.K()
	if k < 1 {
		return Partition{}, ErrInvalidK
	}
	n := space.Len()
	labels := make([]int, n)

	assignRange := func(ctx context.Context, lo, hi int) error {
		for i := lo; i < hi; i++ {
			if (i-lo)%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			g, err := nearest(space.Vector(i), centroids)
			if err != nil {
				return errors.Wrapf(err, "node %d", i)
			}
			labels[i] = g
		}
		return nil
	}

	if workers > n/minNodesPerWorker {
		workers = n / minNodesPerWorker
	}
	if workers <= 1 {
		if err := assignRange(ctx, 0, n); err != nil {
			return Partition{}, err
		}
		return newPartition(labels, k), nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		eg.Go(func() error {
			return assignRange(egCtx, lo, hi)
		})
	}
	if err := eg.Wait(); err != nil {
		return Partition{}, err
	}
	return newPartition(labels, k), nil
}

// nearest returns the index of the closest centroid to vec.
func nearest(vec []float64, centroids CentroidSet) (int, error) {
	best := -1
	var bestDist float64
	for j, c := range centroids {
		d, err := distance.Euclidean(vec, c)
		if err != nil {
			return -1, err
		}
		if best == -1 || d < bestDist {
			best = j
			bestDist = d
		}
	}
	return best, nil
}
