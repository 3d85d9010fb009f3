package spill

import (
	"math"

	"github.com/viterin/vek"
)

type BoundKind int

const (
	// BoundAxisAligned bounds also satisfy IntervalBound; the splitter
	// picks directions from the bound geometry alone.
	BoundAxisAligned BoundKind = iota
	// BoundOpaque bounds expose no structure; the splitter falls back to
	// sampling the actual points.
	BoundOpaque
)

// Bound is the geometric region attached to a tree node.
type Bound interface {
	Kind() BoundKind
}

// IntervalBound is the extra capability axis-aligned bounds carry.
type IntervalBound interface {
	Bound
	Width(dim int) float64
	Mid(dim int) float64
}

// HRectBound is an axis-aligned hyper-rectangle.
type HRectBound struct {
	lo, hi Vector
}

var _ IntervalBound = &HRectBound{}

func NewHRectBound(dims int) *HRectBound {
	b := &HRectBound{
		lo: make(Vector, dims),
		hi: make(Vector, dims),
	}
	for d := 0; d < dims; d++ {
		b.lo[d] = math.Inf(1)
		b.hi[d] = math.Inf(-1)
	}
	return b
}

// HRectBoundOf computes the tight bounding box of the given columns.
func HRectBoundOf(data *Matrix, points []int) *HRectBound {
	b := NewHRectBound(data.Dims())
	for _, p := range points {
		b.Grow(data.Col(p))
	}
	return b
}

func (b *HRectBound) Kind() BoundKind {
	return BoundAxisAligned
}

func (b *HRectBound) Width(dim int) float64 {
	if w := b.hi[dim] - b.lo[dim]; w > 0 {
		return w
	}
	return 0
}

func (b *HRectBound) Mid(dim int) float64 {
	return (b.lo[dim] + b.hi[dim]) / 2
}

func (b *HRectBound) Grow(p Vector) {
	for d, x := range p {
		if x < b.lo[d] {
			b.lo[d] = x
		}
		if x > b.hi[d] {
			b.hi[d] = x
		}
	}
}

// Merge widens b to also enclose other.
func (b *HRectBound) Merge(other *HRectBound) {
	for d := range b.lo {
		if other.lo[d] < b.lo[d] {
			b.lo[d] = other.lo[d]
		}
		if other.hi[d] > b.hi[d] {
			b.hi[d] = other.hi[d]
		}
	}
}

func (b *HRectBound) Contains(p Vector) bool {
	for d, x := range p {
		if x < b.lo[d] || x > b.hi[d] {
			return false
		}
	}
	return true
}

// MinDistance returns the Euclidean distance from p to the box, zero if
// p is inside. Used for search pruning.
func (b *HRectBound) MinDistance(p Vector) float64 {
	var sum float64
	for d, x := range p {
		if x < b.lo[d] {
			diff := b.lo[d] - x
			sum += diff * diff
		} else if x > b.hi[d] {
			diff := x - b.hi[d]
			sum += diff * diff
		}
	}
	return math.Sqrt(sum)
}

// BallBound is an opaque bound: a center and radius under some metric.
// It deliberately exposes no per-dimension structure, which forces the
// splitter onto its point-sampling path.
type BallBound struct {
	center Vector
	radius float64
	metric Metric
}

var _ Bound = &BallBound{}

// BallBoundOf centers a ball on the mean of the columns and takes the
// farthest column as the radius.
func BallBoundOf(data *Matrix, points []int, metric Metric) *BallBound {
	center := make(Vector, data.Dims())
	for _, p := range points {
		vek.Add_Inplace(center, data.Col(p))
	}
	vek.DivNumber_Inplace(center, float64(len(points)))
	b := &BallBound{center: center, metric: metric}
	for _, p := range points {
		if d := metric.Evaluate(center, data.Col(p)); d > b.radius {
			b.radius = d
		}
	}
	return b
}

func (b *BallBound) Kind() BoundKind {
	return BoundOpaque
}

func (b *BallBound) Center() Vector {
	return b.center
}

func (b *BallBound) Radius() float64 {
	return b.radius
}

func (b *BallBound) Contains(p Vector) bool {
	return b.metric.Evaluate(b.center, p) <= b.radius
}
