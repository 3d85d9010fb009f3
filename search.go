package spill

import (
	"github.com/kelindar/bitmap"
)

// FindNearest is the defeatist search: one root-to-leaf descent with no
// backtracking. The spill overlap is what keeps its recall usable; with
// Tau of zero expect misses near partition boundaries.
func (t *Tree) FindNearest(q Vector, k int) (*ResultSet, error) {
	if t.root == nil {
		return nil, ErrNotBuilt
	}
	if len(q) != t.data.Dims() {
		return nil, ErrDimMismatch
	}
	rs := NewResultSet(k)
	var seen bitmap.Bitmap
	t.scanLeaf(t.leaves[t.candidateLeaf(q)], q, rs, &seen)
	return rs, nil
}

// FindNearestExact backtracks with bound pruning and returns the true
// nearest neighbors. Pruning relies on Euclidean box distances, so with
// a non-Euclidean metric every subtree is visited.
func (t *Tree) FindNearestExact(q Vector, k int) (*ResultSet, error) {
	if t.root == nil {
		return nil, ErrNotBuilt
	}
	if len(q) != t.data.Dims() {
		return nil, ErrDimMismatch
	}
	rs := NewResultSet(k)
	var seen bitmap.Bitmap
	_, prunable := t.cfg.Metric.(Euclidean)
	t.backtrack(t.root, q, rs, &seen, prunable)
	return rs, nil
}

func (t *Tree) backtrack(n *treeNode, q Vector, rs *ResultSet, seen *bitmap.Bitmap, prunable bool) {
	if n.leaf >= 0 {
		t.scanLeaf(n, q, rs, seen)
		return
	}
	near, far := n.left, n.right
	if !n.hyp.Left(q) {
		near, far = far, near
	}
	t.backtrack(near, q, rs, seen, prunable)
	if !prunable || far.bound.MinDistance(q) <= rs.Worst() {
		t.backtrack(far, q, rs, seen, prunable)
	}
}

func (t *Tree) scanLeaf(n *treeNode, q Vector, rs *ResultSet, seen *bitmap.Bitmap) {
	for _, p := range n.points {
		// Spilled points show up in several leaves; count each once.
		if seen.Contains(uint32(p)) {
			continue
		}
		seen.Set(uint32(p))
		rs.AddResult(ID(p), t.cfg.Metric.Evaluate(q, t.data.Col(p)))
	}
}

// ExhaustiveSearch is the brute-force baseline over every column.
func ExhaustiveSearch(data *Matrix, q Vector, k int, metric Metric) *ResultSet {
	if metric == nil {
		metric = Euclidean{}
	}
	rs := NewResultSet(k)
	for i := 0; i < data.Cols(); i++ {
		rs.AddResult(ID(i), metric.Evaluate(q, data.Col(i)))
	}
	return rs
}
