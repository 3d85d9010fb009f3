package spill

// Matrix is a column-major store of points: each column is one point,
// columns are contiguous so they can be handed out as zero-copy Vectors.
// The matrix is owned by the caller; the index and splitters only read
// columns by index.
type Matrix struct {
	data Vector
	dims int
}

func NewMatrix(dims, cols int) *Matrix {
	return &Matrix{
		data: make(Vector, dims*cols),
		dims: dims,
	}
}

// MatrixFromVectors copies a set of equal-length vectors into a fresh
// column-major matrix.
func MatrixFromVectors(vecs []Vector) *Matrix {
	if len(vecs) == 0 {
		return &Matrix{}
	}
	m := NewMatrix(len(vecs[0]), len(vecs))
	for i, v := range vecs {
		m.SetCol(i, v)
	}
	return m
}

// MatrixFromRows wraps flat row-major data (rows points of dims values
// each, the usual .npy layout) by transposing it into column-major form.
func MatrixFromRows(raw []float64, rows, dims int) *Matrix {
	m := NewMatrix(dims, rows)
	for r := 0; r < rows; r++ {
		col := m.Col(r)
		for d := 0; d < dims; d++ {
			col[d] = raw[r*dims+d]
		}
	}
	return m
}

func (m *Matrix) Dims() int {
	return m.dims
}

func (m *Matrix) Cols() int {
	if m.dims == 0 {
		return 0
	}
	return len(m.data) / m.dims
}

// Col returns the i-th point as a view into the matrix. Mutating it
// mutates the matrix.
func (m *Matrix) Col(i int) Vector {
	return m.data[i*m.dims : (i+1)*m.dims]
}

func (m *Matrix) SetCol(i int, v Vector) {
	copy(m.Col(i), v)
}

// AllPoints returns the index set covering every column, the usual seed
// for a full tree build.
func (m *Matrix) AllPoints() []int {
	out := make([]int, m.Cols())
	for i := range out {
		out[i] = i
	}
	return out
}
