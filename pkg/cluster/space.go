package cluster

// Space is a read-only, indexed collection of N vectors of dimension D.
// Implementations must return the same slice contents for the lifetime of a
// run; callers never write through the returned slices.
type Space interface {
	Len() int
	Dim() int
	Vector(i int) []float64
}

// Vectors adapts a plain matrix to Space. Its dimension is the length of the
// first row.
type Vectors [][]float64

func (v Vectors) Len() int { return len(v) }

func (v Vectors) Dim() int {
	if len(v) == 0 {
		return 0
	}
	return len(v[0])
}

func (v Vectors) Vector(i int) []float64 { return v[i] }
