package spill

import (
	"math/rand"
	"time"

	"github.com/viterin/vek"
)

// ID identifies a point by its column index in the data matrix.
type ID uint64

// Vector is a single point, usually a borrowed column of a Matrix.
type Vector []float64

func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

func (v Vector) Dimensions() int {
	return len(v)
}

func (v Vector) Dot(other Vector) float64 {
	return vek.Dot(v, other)
}

// Normalize scales v to unit length in place. Zero vectors are the
// caller's problem.
func (v Vector) Normalize() {
	vek.DivNumber_Inplace(v, vek.Norm(v))
}

func NewRandVector(dim int, rng *rand.Rand) Vector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixMicro()))
	}
	out := make(Vector, dim)
	for i := range out {
		out[i] = rng.NormFloat64()
	}
	return out
}

func NewRandVectorSet(n int, dim int, rng *rand.Rand) []Vector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixMicro()))
	}
	out := make([]Vector, n)
	for i := range out {
		out[i] = NewRandVector(dim, rng)
	}
	return out
}
