package spill

import (
	"math"
	"math/rand"
	"testing"

	"github.com/viterin/vek"
)

func TestWidestDimSelection(t *testing.T) {
	data := MatrixFromVectors([]Vector{{0, 0}, {1, 0}, {10, 0}, {11, 0}})
	points := data.AllPoints()
	bound := HRectBoundOf(data, points)

	proj, midValue, ok := projectionFor(bound, data, points, nil, nil)
	if !ok {
		t.Fatal("expected a split")
	}
	ap, isAxis := proj.(AxisProjection)
	if !isAxis {
		t.Fatalf("expected an axis projection, got %T", proj)
	}
	if ap.Dim() != 0 {
		t.Fatalf("expected dimension 0 (width 11), got %d", ap.Dim())
	}
	if midValue != 5.5 {
		t.Fatalf("expected midpoint 5.5, got %v", midValue)
	}
}

func TestWidestDimTieBreak(t *testing.T) {
	// Both dimensions have width 2; the lowest index must win.
	data := MatrixFromVectors([]Vector{{0, 0}, {2, 2}})
	points := data.AllPoints()
	bound := HRectBoundOf(data, points)

	proj, _, ok := projectionFor(bound, data, points, nil, nil)
	if !ok {
		t.Fatal("expected a split")
	}
	if dim := proj.(AxisProjection).Dim(); dim != 0 {
		t.Fatalf("tie must resolve to dimension 0, got %d", dim)
	}

	data = MatrixFromVectors([]Vector{{0, 0}, {1, 3}})
	points = data.AllPoints()
	bound = HRectBoundOf(data, points)
	proj, _, _ = projectionFor(bound, data, points, nil, nil)
	if dim := proj.(AxisProjection).Dim(); dim != 1 {
		t.Fatalf("expected dimension 1 (width 3), got %d", dim)
	}
}

func TestAxisDegenerateBound(t *testing.T) {
	data := MatrixFromVectors([]Vector{{5, 5}, {5, 5}, {5, 5}})
	points := data.AllPoints()
	bound := HRectBoundOf(data, points)

	if _, _, ok := projectionFor(bound, data, points, nil, nil); ok {
		t.Fatal("coincident points must not be splittable")
	}
}

func TestGenericUnitNorm(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	data := MatrixFromVectors(NewRandVectorSet(50, 16, rng))
	points := data.AllPoints()
	bound := BallBoundOf(data, points, Euclidean{})

	proj, _, ok := projectionFor(bound, data, points, Euclidean{}, rng)
	if !ok {
		t.Fatal("expected a split")
	}
	up, isUnit := proj.(UnitProjection)
	if !isUnit {
		t.Fatalf("expected a unit projection, got %T", proj)
	}
	if norm := vek.Norm(up.Direction()); math.Abs(norm-1) >= 1e-9 {
		t.Fatalf("direction norm %v is not unit", norm)
	}
}

func TestGenericFarthestPair(t *testing.T) {
	// Colinear points spaced along (3,4)/5. Whatever the random start,
	// two passes must end on the two extremes.
	data := MatrixFromVectors([]Vector{{0, 0}, {3, 4}, {6, 8}})
	points := data.AllPoints()
	bound := BallBoundOf(data, points, Euclidean{})

	for seed := int64(0); seed < 10; seed++ {
		rng := rand.New(rand.NewSource(seed))
		proj, midValue, ok := projectionFor(bound, data, points, Euclidean{}, rng)
		if !ok {
			t.Fatal("expected a split")
		}
		dir := proj.(UnitProjection).Direction()
		if math.Abs(math.Abs(dir[0])-0.6) > 1e-9 || math.Abs(math.Abs(dir[1])-0.8) > 1e-9 {
			t.Fatalf("seed %d: expected direction ±(0.6, 0.8), got %v", seed, dir)
		}
		// Midpoint of the extremes is (3,4), which projects to ±5.
		if math.Abs(math.Abs(midValue)-5) > 1e-9 {
			t.Fatalf("seed %d: expected |midValue| 5, got %v", seed, midValue)
		}
	}
}

func TestGenericDegenerate(t *testing.T) {
	data := MatrixFromVectors([]Vector{{5, 5}, {5, 5}, {5, 5}})
	points := data.AllPoints()
	bound := BallBoundOf(data, points, Euclidean{})

	rng := rand.New(rand.NewSource(1))
	if _, _, ok := projectionFor(bound, data, points, Euclidean{}, rng); ok {
		t.Fatal("identical points must not be splittable")
	}

	mid := MidpointSplitter{Metric: Euclidean{}, Rng: rng}
	if _, ok := mid.SplitSpace(bound, data, points); ok {
		t.Fatal("midpoint splitter must report no split")
	}
	mean := MeanSplitter{Metric: Euclidean{}, Rng: rng}
	if _, ok := mean.SplitSpace(bound, data, points); ok {
		t.Fatal("mean splitter must report no split")
	}
}

func TestMidpointVsMean(t *testing.T) {
	// Symmetric within the bound: both policies land on 5.5.
	data := MatrixFromVectors([]Vector{{0, 0}, {1, 0}, {10, 0}, {11, 0}})
	points := data.AllPoints()
	bound := HRectBoundOf(data, points)

	midHyp, ok := MidpointSplitter{}.SplitSpace(bound, data, points)
	if !ok {
		t.Fatal("expected a split")
	}
	meanHyp, ok := MeanSplitter{}.SplitSpace(bound, data, points)
	if !ok {
		t.Fatal("expected a split")
	}
	if midHyp.SplitValue() != 5.5 || meanHyp.SplitValue() != 5.5 {
		t.Fatalf("expected both split values 5.5, got %v and %v",
			midHyp.SplitValue(), meanHyp.SplitValue())
	}
	if midHyp.Projection() != meanHyp.Projection() {
		t.Fatal("both policies must pick the same direction")
	}

	// Skewed: the bound midpoint stays 5.5 but the point mean is 2.75.
	data = MatrixFromVectors([]Vector{{0, 0}, {0, 0}, {0, 0}, {11, 0}})
	points = data.AllPoints()
	bound = HRectBoundOf(data, points)

	midHyp, _ = MidpointSplitter{}.SplitSpace(bound, data, points)
	meanHyp, _ = MeanSplitter{}.SplitSpace(bound, data, points)
	if midHyp.SplitValue() != 5.5 {
		t.Fatalf("expected bound midpoint 5.5, got %v", midHyp.SplitValue())
	}
	if meanHyp.SplitValue() != 2.75 {
		t.Fatalf("expected point mean 2.75, got %v", meanHyp.SplitValue())
	}
}

func TestMeanSplitterGenericPath(t *testing.T) {
	data := MatrixFromVectors([]Vector{{0, 0}, {3, 4}, {6, 8}, {30, 40}})
	points := data.AllPoints()
	bound := BallBoundOf(data, points, Euclidean{})

	rng := rand.New(rand.NewSource(3))
	hyp, ok := MeanSplitter{Metric: Euclidean{}, Rng: rng}.SplitSpace(bound, data, points)
	if !ok {
		t.Fatal("expected a split")
	}
	// Projections are ±(0, 5, 10, 50); the mean is ±16.25.
	if math.Abs(math.Abs(hyp.SplitValue())-16.25) > 1e-9 {
		t.Fatalf("expected |split| 16.25, got %v", hyp.SplitValue())
	}
}

func TestHyperplaneSides(t *testing.T) {
	data := MatrixFromVectors([]Vector{{0, 0}, {3, 4}, {6, 8}})
	points := data.AllPoints()
	bound := BallBoundOf(data, points, Euclidean{})

	rng := rand.New(rand.NewSource(2))
	hyp, ok := MidpointSplitter{Metric: Euclidean{}, Rng: rng}.SplitSpace(bound, data, points)
	if !ok {
		t.Fatal("expected a split")
	}
	m0 := hyp.Margin(data.Col(0))
	m2 := hyp.Margin(data.Col(2))
	if m0*m2 >= 0 {
		t.Fatalf("extremes must land on opposite sides, margins %v and %v", m0, m2)
	}
	if mid := hyp.Margin(data.Col(1)); math.Abs(mid) > 1e-9 {
		t.Fatalf("the midpoint must sit on the hyperplane, margin %v", mid)
	}
	if !hyp.Left(data.Col(1)) {
		t.Fatal("ties must resolve left")
	}
}
