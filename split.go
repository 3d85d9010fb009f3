package spill

import (
	"math/rand"
	"time"

	"github.com/viterin/vek"
)

// Splitter computes the splitting hyperplane for one tree node. The bool
// result is false when the node is degenerate (every point coincides, or
// the bound has no positive width anywhere) and no hyperplane can
// separate it; the tree builder turns such nodes into leaves.
//
// Splitters are pure: safe to call concurrently for different nodes as
// long as each call gets its own Rand.
type Splitter interface {
	SplitSpace(bound Bound, data *Matrix, points []int) (Hyperplane, bool)
}

// MidpointSplitter places the split at the reference value chosen with
// the direction: the bound midpoint on the widest axis, or the midpoint
// of the farthest pair.
type MidpointSplitter struct {
	Metric Metric
	Rng    *rand.Rand
}

func (s MidpointSplitter) SplitSpace(bound Bound, data *Matrix, points []int) (Hyperplane, bool) {
	proj, midValue, ok := projectionFor(bound, data, points, s.Metric, s.Rng)
	if !ok {
		return Hyperplane{}, false
	}
	return NewHyperplane(proj, midValue), true
}

// MeanSplitter uses the same direction as MidpointSplitter but recenters
// the split on the mean projection of the actual points, which tracks
// the data distribution instead of the bound geometry at the cost of one
// extra pass over the point set.
type MeanSplitter struct {
	Metric Metric
	Rng    *rand.Rand
}

func (s MeanSplitter) SplitSpace(bound Bound, data *Matrix, points []int) (Hyperplane, bool) {
	proj, _, ok := projectionFor(bound, data, points, s.Metric, s.Rng)
	if !ok {
		return Hyperplane{}, false
	}
	splitVal := 0.0
	for _, p := range points {
		splitVal += proj.Project(data.Col(p))
	}
	splitVal /= float64(len(points))
	return NewHyperplane(proj, splitVal), true
}

// projectionFor picks the split direction and its reference value.
// Axis-aligned bounds get the widest-dimension policy; everything else
// gets the farthest-pair estimate over the points themselves.
func projectionFor(bound Bound, data *Matrix, points []int, metric Metric, rng *rand.Rand) (Projection, float64, bool) {
	if ib, ok := bound.(IntervalBound); ok && bound.Kind() == BoundAxisAligned {
		return widestDimProjection(ib, data)
	}
	return farthestPairProjection(data, points, metric, rng)
}

func widestDimProjection(bound IntervalBound, data *Matrix) (Projection, float64, bool) {
	splitDim := -1
	maxWidth := -1.0
	for d := 0; d < data.Dims(); d++ {
		if width := bound.Width(d); width > maxWidth {
			maxWidth = width
			splitDim = d
		}
	}
	if maxWidth <= 0 {
		// All the points coincide.
		return nil, 0, false
	}
	return NewAxisProjection(splitDim), bound.Mid(splitDim), true
}

// farthestPairProjection estimates the two extreme points of the set
// with two farthest-point passes, the same trick the Annoy-style split
// uses: linear time instead of the quadratic exact diameter, good enough
// for a split heuristic.
func farthestPairProjection(data *Matrix, points []int, metric Metric, rng *rand.Rand) (Projection, float64, bool) {
	if metric == nil {
		metric = Euclidean{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixMicro()))
	}

	fst := points[rng.Intn(len(points))]
	snd := points[0]
	max := metric.Evaluate(data.Col(fst), data.Col(snd))

	for _, p := range points[1:] {
		if dist := metric.Evaluate(data.Col(fst), data.Col(p)); dist > max {
			max = dist
			snd = p
		}
	}

	// Second pass from the point we just found, keeping the running max.
	fst, snd = snd, fst
	for _, p := range points {
		if dist := metric.Evaluate(data.Col(fst), data.Col(p)); dist > max {
			max = dist
			snd = p
		}
	}

	if max == 0 {
		// All the points coincide.
		return nil, 0, false
	}

	proj := NewUnitProjection(vek.Sub(data.Col(snd), data.Col(fst)))

	midPoint := vek.Add(data.Col(snd), data.Col(fst))
	vek.DivNumber_Inplace(midPoint, 2)

	return proj, proj.Project(midPoint), true
}
