package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/alitto/pond"
	"github.com/sbinet/npyio"

	"github.com/spilltree/spill"
)

var (
	path        = flag.String("path", "", "Directory with train.npy and test.npy (random data when empty)")
	nTrain      = flag.Int("n", 100000, "Random train vectors when no -path")
	nTest       = flag.Int("testn", 1000, "Random test vectors when no -path")
	dim         = flag.Int("dim", 128, "Dimension of random vectors")
	trees       = flag.Int("trees", 8, "Trees in the index")
	k           = flag.Int("k", 10, "K top results")
	searchK     = flag.Int("searchk", 1000, "Candidate pool size")
	leafSize    = flag.Int("leaf", 40, "Leaf size")
	tau         = flag.Float64("tau", 0.05, "Spill overlap buffer")
	mean        = flag.Bool("mean", false, "Use the mean splitter instead of midpoint")
	seed        = flag.Int64("seed", 1, "Build seed")
	parallelism = flag.Int("parallel", 8, "Parallel build/query workers")
	storeDir    = flag.String("store", "", "Persist the index under this directory")
)

func main() {
	flag.Parse()

	var train, test *spill.Matrix
	if *path != "" {
		train = loadNpy(filepath.Join(*path, "train.npy"))
		test = loadNpy(filepath.Join(*path, "test.npy"))
	} else {
		rng := rand.New(rand.NewSource(*seed))
		train = spill.MatrixFromVectors(spill.NewRandVectorSet(*nTrain, *dim, rng))
		test = spill.MatrixFromVectors(spill.NewRandVectorSet(*nTest, *dim, rng))
	}
	log.Printf("train: %d points, %d dims; test: %d queries", train.Cols(), train.Dims(), test.Cols())

	cfg := spill.TreeConfig{
		LeafSize: *leafSize,
		Tau:      *tau,
		Seed:     *seed,
	}
	if *mean {
		cfg.Splitter = spill.MeanSplitter{
			Metric: spill.Euclidean{},
			Rng:    rand.New(rand.NewSource(*seed)),
		}
	}
	ix := spill.NewIndex(train, *trees, cfg)
	ix.SetLogger(log.Printf)

	start := time.Now()
	if err := ix.Build(*parallelism); err != nil {
		log.Fatal(err)
	}
	log.Printf("built index in %v", time.Since(start))

	if *storeDir != "" {
		st, err := spill.OpenStore(*storeDir, train.Dims())
		if err != nil {
			log.Fatal(err)
		}
		if err := st.SaveMatrix(train); err != nil {
			log.Fatal(err)
		}
		if err := st.SaveIndex(ix); err != nil {
			log.Fatal(err)
		}
		if err := st.Close(); err != nil {
			log.Fatal(err)
		}
		log.Printf("persisted index to %s", *storeDir)
	}

	res := make([]*spill.ResultSet, test.Cols())
	var finished atomic.Uint32
	pool := pond.New(*parallelism, 0, pond.MinWorkers(*parallelism))
	start = time.Now()
	for i := 0; i < test.Cols(); i++ {
		j := i
		pool.Submit(func() {
			var err error
			res[j], err = ix.FindNearest(test.Col(j), *k, *searchK)
			if err != nil {
				log.Fatal(err)
			}
			v := finished.Add(1)
			if v%1000 == 0 {
				log.Printf("search finished %d", v)
			}
		})
	}
	pool.StopAndWait()
	delta := time.Since(start)

	truth := make([]*spill.ResultSet, test.Cols())
	truthPool := pond.New(*parallelism, 0, pond.MinWorkers(*parallelism))
	for i := 0; i < test.Cols(); i++ {
		j := i
		truthPool.Submit(func() {
			truth[j] = spill.ExhaustiveSearch(train, test.Col(j), *k, spill.Euclidean{})
		})
	}
	truthPool.StopAndWait()

	qps := float64(test.Cols()) / delta.Seconds()
	totalrecall := 0.0
	for i := range res {
		totalrecall += res[i].ComputeRecall(truth[i], *k)
	}
	recall := totalrecall / float64(len(res))
	fmt.Printf("%0.4f,%0.4f\n", qps, recall)
}

func loadNpy(name string) *spill.Matrix {
	f, err := os.Open(name)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	r, err := npyio.NewReader(f)
	if err != nil {
		log.Fatal(err)
	}
	shape := r.Header.Descr.Shape
	if len(shape) != 2 {
		log.Fatalf("%s: want a 2-d array, got shape %v", name, shape)
	}
	var raw []float64
	if err := r.Read(&raw); err != nil {
		log.Fatal(err)
	}
	return spill.MatrixFromRows(raw, shape[0], shape[1])
}
