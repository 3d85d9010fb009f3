package spill

import (
	"math"

	"github.com/viterin/vek"
)

// Metric evaluates the distance between two points. Implementations must
// be safe for concurrent use; all of the ones here are stateless.
type Metric interface {
	Evaluate(a, b Vector) float64
}

type Euclidean struct{}

func (Euclidean) Evaluate(a, b Vector) float64 {
	return vek.Distance(a, b)
}

type Manhattan struct{}

func (Manhattan) Evaluate(a, b Vector) float64 {
	var d float64
	for i := range a {
		d += math.Abs(a[i] - b[i])
	}
	return d
}

type Chebyshev struct{}

func (Chebyshev) Evaluate(a, b Vector) float64 {
	var d float64
	for i := range a {
		if abs := math.Abs(a[i] - b[i]); abs > d {
			d = abs
		}
	}
	return d
}
