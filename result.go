package spill

import (
	"fmt"
	"math"
	"sync"
)

type Result struct {
	Distance float64
	ID       ID
}

func (r Result) String() string {
	return fmt.Sprintf("(%d %0.4f)", r.ID, r.Distance)
}

// ResultSet keeps the k nearest candidates seen so far, ordered by
// ascending distance. Safe for concurrent AddResult calls.
type ResultSet struct {
	inner sync.Mutex
	dists []float64
	ids   []ID
	k     int
	valid int
}

func NewResultSet(topK int) *ResultSet {
	return &ResultSet{
		k:     topK,
		dists: make([]float64, topK),
		ids:   make([]ID, topK),
		valid: 0,
	}
}

func (rs *ResultSet) Len() int {
	return rs.valid
}

// Worst is the current k-th distance, +Inf while the set is underfull.
// Search uses it to prune subtrees.
func (rs *ResultSet) Worst() float64 {
	rs.inner.Lock()
	defer rs.inner.Unlock()
	if rs.valid < rs.k {
		return math.Inf(1)
	}
	return rs.dists[rs.valid-1]
}

func (rs *ResultSet) ComputeRecall(baseline *ResultSet, at int) float64 {
	found := 0
	for _, v := range baseline.ids[:at] {
		for _, w := range rs.ids[:at] {
			if v == w {
				found += 1
			}
		}
	}
	return float64(found) / float64(at)
}

func (rs *ResultSet) String() string {
	return fmt.Sprint(rs.ToSlice())
}

func (rs *ResultSet) AddResult(id ID, dist float64) bool {
	// Do a quick check...
	if rs.valid == rs.k {
		// Bail if the last one beats us
		last := rs.dists[len(rs.dists)-1]
		if last < dist {
			return false
		}
	}
	rs.inner.Lock()
	defer rs.inner.Unlock()
	insert := 0
	for insert != rs.k {
		// If we're building it out, then the new insertion point is at the end.
		if rs.valid <= insert {
			break
		}
		if rs.ids[insert] == id {
			return true
		}
		if rs.dists[insert] > dist {
			break
		}
		insert++
	}
	if insert == rs.k {
		return false
	}
	copy(rs.dists[insert+1:], rs.dists[insert:])
	rs.dists[insert] = dist
	copy(rs.ids[insert+1:], rs.ids[insert:])
	rs.ids[insert] = id
	if rs.valid < rs.k {
		rs.valid += 1
	}
	return true
}

func (rs *ResultSet) ToSlice() []*Result {
	out := make([]*Result, rs.valid)
	for i := range out {
		out[i] = &Result{
			Distance: rs.dists[i],
			ID:       rs.ids[i],
		}
	}
	return out
}
