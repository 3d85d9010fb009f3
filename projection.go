package spill

import "github.com/viterin/vek"

// Projection reduces a point to a scalar along some direction.
type Projection interface {
	Project(p Vector) float64
}

// AxisProjection selects a single coordinate.
type AxisProjection struct {
	dim int
}

func NewAxisProjection(dim int) AxisProjection {
	return AxisProjection{dim: dim}
}

func (a AxisProjection) Dim() int {
	return a.dim
}

func (a AxisProjection) Project(p Vector) float64 {
	return p[a.dim]
}

// UnitProjection projects onto an arbitrary unit-length direction.
type UnitProjection struct {
	dir Vector
}

// NewUnitProjection normalizes dir into a unit direction. Callers must
// not pass a zero vector.
func NewUnitProjection(dir Vector) UnitProjection {
	d := dir.Clone()
	d.Normalize()
	return UnitProjection{dir: d}
}

func (u UnitProjection) Direction() Vector {
	return u.dir
}

func (u UnitProjection) Project(p Vector) float64 {
	return vek.Dot(u.dir, p)
}
