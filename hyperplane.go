package spill

// Hyperplane is a projection direction plus a scalar offset. It is built
// once per tree node during construction and read-only afterward.
type Hyperplane struct {
	proj  Projection
	split float64
}

func NewHyperplane(proj Projection, split float64) Hyperplane {
	return Hyperplane{proj: proj, split: split}
}

func (h Hyperplane) Projection() Projection {
	return h.proj
}

func (h Hyperplane) SplitValue() float64 {
	return h.split
}

// Margin is the signed distance of p's projection from the split value.
func (h Hyperplane) Margin(p Vector) float64 {
	return h.proj.Project(p) - h.split
}

// Left reports which side p falls on. Points exactly on the hyperplane
// go left; every consumer partitioning points must use this rule.
func (h Hyperplane) Left(p Vector) bool {
	return h.Margin(p) <= 0
}
