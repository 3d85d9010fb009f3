package spill

import (
	"math/rand"

	"github.com/kelindar/bitmap"
)

type PrintfFunc func(string, ...any)

const (
	defaultLeafSize = 20
	defaultRho      = 0.7
)

// TreeConfig tunes one spill tree build.
type TreeConfig struct {
	// LeafSize is the recursion floor: nodes at or below it stay leaves.
	LeafSize int
	// Tau is the spill buffer. Points whose margin to the node hyperplane
	// is within Tau are assigned to both children. Zero disables overlap
	// and yields a plain ball-tree partition.
	Tau float64
	// Rho caps the fraction of a node's points either spill child may
	// take; past it the node falls back to a strict partition.
	Rho float64
	// Splitter computes the node hyperplanes. Defaults to
	// MidpointSplitter over the Euclidean metric.
	Splitter Splitter
	// Metric orders candidates during search. Defaults to Euclidean.
	Metric Metric
	// Seed feeds the splitter's random source when no Splitter is
	// provided, so builds are reproducible.
	Seed int64
}

func (cfg TreeConfig) withDefaults() TreeConfig {
	if cfg.LeafSize <= 0 {
		cfg.LeafSize = defaultLeafSize
	}
	if cfg.Rho <= 0 || cfg.Rho > 1 {
		cfg.Rho = defaultRho
	}
	if cfg.Metric == nil {
		cfg.Metric = Euclidean{}
	}
	if cfg.Splitter == nil {
		cfg.Splitter = MidpointSplitter{
			Metric: cfg.Metric,
			Rng:    rand.New(rand.NewSource(cfg.Seed)),
		}
	}
	return cfg
}

// Tree is a single spill tree over an externally owned matrix. Build is
// single-threaded per tree; build independent trees concurrently instead
// (see Index).
type Tree struct {
	data    *Matrix
	cfg     TreeConfig
	root    *treeNode
	leaves  []*treeNode
	leafBMs []bitmap.Bitmap
	logger  PrintfFunc
}

type treeNode struct {
	bound       *HRectBound
	hyp         Hyperplane
	overlap     bool
	left, right *treeNode
	leaf        int // index into Tree.leaves, -1 for internal nodes
	points      []int
}

func NewTree(data *Matrix, cfg TreeConfig) *Tree {
	return &Tree{
		data: data,
		cfg:  cfg.withDefaults(),
	}
}

func (t *Tree) SetLogger(printf PrintfFunc) {
	t.logger = printf
}

func (t *Tree) log(s string, a ...any) {
	if t.logger != nil {
		t.logger(s, a...)
	}
}

func (t *Tree) Built() bool {
	return t.root != nil
}

func (t *Tree) LeafCount() int {
	return len(t.leaves)
}

// Build constructs the tree over the given point set, or over every
// column when points is nil.
func (t *Tree) Build(points []int) error {
	if t.root != nil {
		return ErrAlreadyBuilt
	}
	if points == nil {
		points = t.data.AllPoints()
	}
	t.root = t.build(points)
	t.buildLeafBitmaps()
	t.log("built tree: %d points, %d leaves", len(points), len(t.leaves))
	return nil
}

func (t *Tree) build(points []int) *treeNode {
	node := &treeNode{
		bound: HRectBoundOf(t.data, points),
		leaf:  -1,
	}
	if len(points) <= t.cfg.LeafSize {
		return t.makeLeaf(node, points)
	}
	hyp, ok := t.cfg.Splitter.SplitSpace(node.bound, t.data, points)
	if !ok {
		// Degenerate node, nothing to separate.
		return t.makeLeaf(node, points)
	}
	left, right, overlap := t.partition(hyp, points)
	if len(left) == 0 || len(right) == 0 {
		return t.makeLeaf(node, points)
	}
	node.hyp = hyp
	node.overlap = overlap
	node.left = t.build(left)
	node.right = t.build(right)
	return node
}

func (t *Tree) makeLeaf(node *treeNode, points []int) *treeNode {
	node.leaf = len(t.leaves)
	node.points = points
	t.leaves = append(t.leaves, node)
	return node
}

// partition assigns points to children. With a positive Tau, points
// within the buffer land on both sides unless either child would exceed
// the Rho fraction, in which case the node degrades to a strict split.
func (t *Tree) partition(hyp Hyperplane, points []int) (left, right []int, overlap bool) {
	if t.cfg.Tau > 0 {
		for _, p := range points {
			m := hyp.Margin(t.data.Col(p))
			if m <= t.cfg.Tau {
				left = append(left, p)
			}
			if m > -t.cfg.Tau {
				right = append(right, p)
			}
		}
		limit := int(t.cfg.Rho * float64(len(points)))
		if len(left) <= limit && len(right) <= limit {
			return left, right, true
		}
		left, right = nil, nil
	}
	for _, p := range points {
		if hyp.Left(t.data.Col(p)) {
			left = append(left, p)
		} else {
			right = append(right, p)
		}
	}
	return left, right, false
}

func (t *Tree) buildLeafBitmaps() {
	t.leafBMs = make([]bitmap.Bitmap, len(t.leaves))
	for i, leaf := range t.leaves {
		for _, p := range leaf.points {
			t.leafBMs[i].Set(uint32(p))
		}
	}
}

// LeafPoints returns the point set of one leaf; the slice is owned by
// the tree.
func (t *Tree) LeafPoints(leaf int) []int {
	return t.leaves[leaf].points
}

// candidateLeaf runs a defeatist descent and returns the reached leaf's
// index. Overlap buffers stand in for backtracking.
func (t *Tree) candidateLeaf(q Vector) int {
	n := t.root
	for n.leaf < 0 {
		if n.hyp.Left(q) {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.leaf
}
