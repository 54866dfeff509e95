// Package distance computes the dissimilarity between two embedding vectors.
//
// Only the Euclidean metric is provided. Two implementations share the same
// contract: a pure Go loop and a Gonum BLAS routine that uses SIMD kernels on
// CPUs with AVX2. The active implementation is chosen once at init from the
// detected CPU features and can be overridden with Use.
package distance

import (
	"fmt"
	"math"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/cpuid/v2"
	"gonum.org/v1/gonum/blas/gonum"
)

// ErrDimensionMismatch is matched by every error returned for vectors of
// different lengths.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// DimensionMismatchError reports the two lengths that were compared.
type DimensionMismatchError struct {
	Left  int
	Right int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: %d != %d", e.Left, e.Right)
}

// Is lets errors.Is(err, ErrDimensionMismatch) succeed.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// Implementation names a backend for the squared Euclidean kernel.
type Implementation string

const (
	// PureGo is the reference loop.
	PureGo Implementation = "pure-go"
	// Gonum delegates to gonum's BLAS Daxpy/Ddot.
	Gonum Implementation = "gonum"
)

// Func is the signature shared by all distance kernels.
type Func func(a, b []float64) (float64, error)

var kernels = map[Implementation]Func{
	PureGo: squaredEuclideanGo,
	Gonum:  squaredEuclideanGonum,
}

var (
	activeMu sync.RWMutex
	active   = PureGo
)

func init() {
	if cpuid.CPU.Has(cpuid.AVX2) {
		active = Gonum
	}
}

// Active returns the implementation currently used by Euclidean.
func Active() Implementation {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return active
}

// Use switches the implementation used by Euclidean and SquaredEuclidean.
func Use(impl Implementation) error {
	if _, ok := kernels[impl]; !ok {
		return errors.Newf("unknown distance implementation %q", impl)
	}
	activeMu.Lock()
	active = impl
	activeMu.Unlock()
	return nil
}

// Euclidean returns the square root of the sum of squared element-wise
// differences between a and b.
func Euclidean(a, b []float64) (float64, error) {
	sq, err := SquaredEuclidean(a, b)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(sq), nil
}

// SquaredEuclidean returns the sum of squared element-wise differences.
func SquaredEuclidean(a, b []float64) (float64, error) {
	return kernels[Active()](a, b)
}

func checkDims(a, b []float64) error {
	if len(a) != len(b) {
		return &DimensionMismatchError{Left: len(a), Right: len(b)}
	}
	return nil
}

// squaredEuclideanGo is the pure Go reference implementation.
func squaredEuclideanGo(a, b []float64) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum, nil
}

// diffWorkspace holds scratch slices for the BLAS path so that every call
// does not allocate a difference vector.
var diffWorkspace = sync.Pool{
	New: func() any {
		s := make([]float64, 128)
		return &s
	},
}

var gonumEngine = gonum.Implementation{}

// squaredEuclideanGonum computes diff = a - b with Daxpy and then diff·diff.
func squaredEuclideanGonum(a, b []float64) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	n := len(a)
	if n == 0 {
		return 0, nil
	}

	diffPtr := diffWorkspace.Get().(*[]float64)
	defer diffWorkspace.Put(diffPtr)
	if cap(*diffPtr) < n {
		*diffPtr = make([]float64, n)
	}
	diff := (*diffPtr)[:n]

	copy(diff, a)
	gonumEngine.Daxpy(n, -1, b, 1, diff, 1)
	return gonumEngine.Ddot(n, diff, 1, diff, 1), nil
}
