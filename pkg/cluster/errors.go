package cluster

import (
	"github.com/cockroachdb/errors"

	"github.com/sanonone/kektorgraph/pkg/core/distance"
)

var (
	// ErrInvalidK is returned when fewer than one cluster is requested.
	ErrInvalidK = errors.New("k must be at least 1")
	// ErrInsufficientNodes is returned when the space holds fewer nodes than k.
	ErrInsufficientNodes = errors.New("insufficient nodes")
	// ErrDegenerateCluster is returned under FailOnEmpty when a group ends an
	// assignment step without members.
	ErrDegenerateCluster = errors.New("degenerate cluster")
	// ErrCentroidCount is returned when two centroid sets of different sizes
	// are compared.
	ErrCentroidCount = errors.New("centroid count mismatch")
	// ErrDimensionMismatch aliases the distance package sentinel.
	ErrDimensionMismatch = distance.ErrDimensionMismatch
)

func insufficientNodes(n, k int) error {
	err := errors.Wrapf(ErrInsufficientNodes, "%d nodes cannot seed %d clusters", n, k)
	return errors.WithHintf(err, "use k <= %d", n)
}
