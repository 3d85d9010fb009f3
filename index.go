package spill

import (
	"runtime"

	"github.com/alitto/pond"
)

// Index is a small forest of spill trees with independent random seeds.
// A query descends every tree, the per-tree candidate leaves are counted
// against each other, and the best-agreed candidates are reranked with
// exact distances.
type Index struct {
	data   *Matrix
	cfg    TreeConfig
	metric Metric
	trees  []*Tree
	logger PrintfFunc
	built  bool
}

// NewIndex sets up a forest of nTrees trees over data. When cfg.Splitter
// is nil each tree gets its own splitter seeded from cfg.Seed+n, which
// keeps parallel builds race-free and reproducible; a caller-supplied
// Splitter is shared by every tree and must be safe for concurrent use.
func NewIndex(data *Matrix, nTrees int, cfg TreeConfig) *Index {
	metric := cfg.Metric
	if metric == nil {
		metric = Euclidean{}
	}
	return &Index{
		data:   data,
		cfg:    cfg,
		metric: metric,
		trees:  make([]*Tree, nTrees),
	}
}

func (ix *Index) SetLogger(printf PrintfFunc) {
	ix.logger = printf
}

func (ix *Index) log(s string, a ...any) {
	if ix.logger != nil {
		ix.logger(s, a...)
	}
}

func (ix *Index) Trees() []*Tree {
	return ix.trees
}

// Build constructs every tree, up to parallelism at a time (GOMAXPROCS
// when zero).
func (ix *Index) Build(parallelism int) error {
	if ix.built {
		return ErrAlreadyBuilt
	}
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	ix.log("building %d trees over %d points", len(ix.trees), ix.data.Cols())
	pool := pond.New(parallelism, 0, pond.MinWorkers(parallelism))
	group := pool.Group()
	errs := make([]error, len(ix.trees))
	for n := range ix.trees {
		cfg := ix.cfg
		cfg.Seed = ix.cfg.Seed + int64(n)
		tree := NewTree(ix.data, cfg)
		ix.trees[n] = tree
		n := n
		group.Submit(func() {
			errs[n] = tree.Build(nil)
			ix.log("completed tree %d: %d leaves", n, tree.LeafCount())
		})
	}
	group.Wait()
	pool.StopAndWait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	ix.built = true
	ix.log("index complete")
	return nil
}

// FindNearest returns the k approximate nearest neighbors of q. searchK
// bounds the candidate pool taken from the counting layers before exact
// reranking; larger values trade speed for recall. Before Build it falls
// back to the exhaustive scan.
func (ix *Index) FindNearest(q Vector, k, searchK int) (*ResultSet, error) {
	if len(q) != ix.data.Dims() {
		return nil, ErrDimMismatch
	}
	if !ix.built {
		return ExhaustiveSearch(ix.data, q, k, ix.metric), nil
	}
	counts := NewCountingBitmap(len(ix.trees))
	for _, t := range ix.trees {
		counts.Or(t.leafBMs[t.candidateLeaf(q)])
	}
	rs := NewResultSet(k)
	elems := counts.TopK(searchK)
	if elems == nil {
		return rs, nil
	}
	elems.Range(func(x uint32) {
		rs.AddResult(ID(x), ix.metric.Evaluate(q, ix.data.Col(int(x))))
	})
	return rs, nil
}
