package spill

import (
	"flag"
	"math/rand"
	"testing"
)

var (
	nVectors = flag.Int("nvectors", 20000, "Number of vectors to generate")
	dim      = flag.Int("dim", 64, "Dimension of generated vectors")
	nTrees   = flag.Int("trees", 8, "Number of trees")
	leafSize = flag.Int("leaf", 32, "Leaf size")
	tau      = flag.Float64("tau", 0.1, "Spill buffer")
	searchk  = flag.Int("searchk", 1000, "Candidate pool size")
)

func BenchmarkIndexSearch(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	data := MatrixFromVectors(NewRandVectorSet(*nVectors, *dim, rng))

	ix := NewIndex(data, *nTrees, TreeConfig{LeafSize: *leafSize, Tau: *tau, Seed: 1})
	if err := ix.Build(0); err != nil {
		b.Fatal(err)
	}

	b.Run("Defeatist", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			v := NewRandVector(*dim, rng)
			ix.FindNearest(v, 10, *searchk)
		}
	})
	b.Run("Exhaustive", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			v := NewRandVector(*dim, rng)
			ExhaustiveSearch(data, v, 10, Euclidean{})
		}
	})
}

func BenchmarkTreeBuild(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	data := MatrixFromVectors(NewRandVectorSet(*nVectors, *dim, rng))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree := NewTree(data, TreeConfig{LeafSize: *leafSize, Tau: *tau, Seed: int64(i)})
		if err := tree.Build(nil); err != nil {
			b.Fatal(err)
		}
	}
}
