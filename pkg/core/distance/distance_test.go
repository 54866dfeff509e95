package distance

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withImplementation runs fn with impl active and restores the previous one.
func withImplementation(t *testing.T, impl Implementation, fn func(t *testing.T)) {
	t.Helper()
	prev := Active()
	require.NoError(t, Use(impl))
	defer func() { _ = Use(prev) }()
	fn(t)
}

func TestEuclidean(t *testing.T) {
	for _, impl := range []Implementation{PureGo, Gonum} {
		t.Run(string(impl), func(t *testing.T) {
			withImplementation(t, impl, func(t *testing.T) {
				testCases := []struct {
					name string
					a, b []float64
					want float64
				}{
					{"3-4-5", []float64{0, 0}, []float64{3, 4}, 5},
					{"identical", []float64{1.5, -2, 7}, []float64{1.5, -2, 7}, 0},
					{"single", []float64{2}, []float64{-1}, 3},
					{"empty", []float64{}, []float64{}, 0},
				}
				for _, tc := range testCases {
					t.Run(tc.name, func(t *testing.T) {
						got, err := Euclidean(tc.a, tc.b)
						require.NoError(t, err)
						assert.InDelta(t, tc.want, got, 1e-12)
					})
				}
			})
		})
	}
}

func TestEuclidean_DimensionMismatch(t *testing.T) {
	for _, impl := range []Implementation{PureGo, Gonum} {
		withImplementation(t, impl, func(t *testing.T) {
			_, err := Euclidean([]float64{1, 2}, []float64{1, 2, 3})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDimensionMismatch)

			var dm *DimensionMismatchError
			require.ErrorAs(t, err, &dm)
			assert.Equal(t, 2, dm.Left)
			assert.Equal(t, 3, dm.Right)
		})
	}
}

func TestEuclidean_SymmetricAndZeroOnIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, impl := range []Implementation{PureGo, Gonum} {
		withImplementation(t, impl, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				dim := 1 + rng.Intn(70)
				a, b := randomVector(rng, dim), randomVector(rng, dim)

				ab, err := Euclidean(a, b)
				require.NoError(t, err)
				ba, err := Euclidean(b, a)
				require.NoError(t, err)
				assert.Equal(t, ab, ba)
				assert.GreaterOrEqual(t, ab, 0.0)

				aa, err := Euclidean(a, a)
				require.NoError(t, err)
				assert.Equal(t, 0.0, aa)
			}
		})
	}
}

func TestImplementationsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 50; i++ {
		a, b := randomVector(rng, 64), randomVector(rng, 64)
		pure, err := squaredEuclideanGo(a, b)
		require.NoError(t, err)
		blas, err := squaredEuclideanGonum(a, b)
		require.NoError(t, err)
		assert.InEpsilon(t, pure, blas, 1e-9)
	}
}

func TestUse_Unknown(t *testing.T) {
	err := Use("avx-9000")
	assert.Error(t, err)
	assert.Contains(t, []Implementation{PureGo, Gonum}, Active())
}

func TestSquaredEuclidean(t *testing.T) {
	got, err := SquaredEuclidean([]float64{1, 2}, []float64{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 8.0, got, 1e-12)
	assert.InDelta(t, math.Sqrt(8), mustEuclidean(t, []float64{1, 2}, []float64{3, 4}), 1e-12)
}

func mustEuclidean(t *testing.T, a, b []float64) float64 {
	t.Helper()
	d, err := Euclidean(a, b)
	require.NoError(t, err)
	return d
}

func randomVector(rng *rand.Rand, dim int) []float64 {
	v := make([]float64, dim)
	for i := range v {
		v[i] = rng.NormFloat64() * 10
	}
	return v
}

func BenchmarkEuclidean(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	for _, impl := range []Implementation{PureGo, Gonum} {
		for _, d := range []int{16, 64, 128, 512} {
			b.Run(fmt.Sprintf("%s_%dD", impl, d), func(b *testing.B) {
				prev := Active()
				_ = Use(impl)
				defer func() { _ = Use(prev) }()
				v1, v2 := randomVector(rng, d), randomVector(rng, d)
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					_, _ = Euclidean(v1, v2)
				}
			})
		}
	}
}
