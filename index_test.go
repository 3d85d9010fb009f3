package spill

import (
	"math/rand"
	"testing"

	"github.com/kelindar/bitmap"
)

func TestIndexSelfQuery(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	data := MatrixFromVectors(NewRandVectorSet(1000, 16, rng))

	ix := NewIndex(data, 4, TreeConfig{LeafSize: 16, Tau: 0.1, Seed: 21})
	ix.SetLogger(t.Logf)
	if err := ix.Build(2); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 50; i++ {
		rs, err := ix.FindNearest(data.Col(i), 1, 100)
		if err != nil {
			t.Fatal(err)
		}
		res := rs.ToSlice()
		if len(res) == 0 || res[0].ID != ID(i) || res[0].Distance != 0 {
			t.Fatalf("point %d: got %v", i, rs)
		}
	}
}

func TestIndexRecall(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	data := MatrixFromVectors(NewRandVectorSet(5000, 16, rng))

	ix := NewIndex(data, 8, TreeConfig{LeafSize: 32, Tau: 0.15, Seed: 23})
	if err := ix.Build(4); err != nil {
		t.Fatal(err)
	}

	k := 10
	total := 0.0
	queries := 50
	for i := 0; i < queries; i++ {
		q := NewRandVector(16, rng)
		got, err := ix.FindNearest(q, k, 500)
		if err != nil {
			t.Fatal(err)
		}
		want := ExhaustiveSearch(data, q, k, Euclidean{})
		total += got.ComputeRecall(want, k)
	}
	recall := total / float64(queries)
	t.Logf("recall@%d: %0.3f", k, recall)
	if recall < 0.5 {
		t.Fatalf("recall %0.3f is suspiciously low", recall)
	}
}

func TestIndexFallbackBeforeBuild(t *testing.T) {
	rng := rand.New(rand.NewSource(27))
	data := MatrixFromVectors(NewRandVectorSet(100, 8, rng))

	ix := NewIndex(data, 2, TreeConfig{})
	q := NewRandVector(8, rng)
	got, err := ix.FindNearest(q, 5, 50)
	if err != nil {
		t.Fatal(err)
	}
	want := ExhaustiveSearch(data, q, 5, Euclidean{})
	if recall := got.ComputeRecall(want, 5); recall != 1.0 {
		t.Fatalf("unbuilt index must fall back to the exhaustive scan, recall %v", recall)
	}
}

func TestIndexBuildTwice(t *testing.T) {
	data := MatrixFromVectors(NewRandVectorSet(50, 4, rand.New(rand.NewSource(1))))
	ix := NewIndex(data, 2, TreeConfig{})
	if err := ix.Build(1); err != nil {
		t.Fatal(err)
	}
	if err := ix.Build(1); err != ErrAlreadyBuilt {
		t.Fatalf("expected ErrAlreadyBuilt, got %v", err)
	}
}

func TestCountingBitmap(t *testing.T) {
	sets := [][]uint32{{1, 2}, {2, 3}, {2}}
	counts := NewCountingBitmap(3)
	for _, set := range sets {
		var bm bitmap.Bitmap
		for _, x := range set {
			bm.Set(x)
		}
		counts.Or(bm)
	}

	// Multiplicities: 1 once, 2 three times, 3 once.
	cards := counts.cardinalities()
	if cards[0] != 3 || cards[1] != 1 || cards[2] != 1 {
		t.Fatalf("unexpected layer cardinalities %v", cards)
	}

	top := counts.TopK(1)
	if top.Count() != 1 || !top.Contains(2) {
		t.Fatalf("TopK(1) must return the triple-counted point, got %v", top)
	}
	top = counts.TopK(2)
	if top.Count() != 3 {
		t.Fatalf("TopK(2) must fall back to the union layer, got %v", top)
	}
}
