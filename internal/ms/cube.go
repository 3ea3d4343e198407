package ms

// Cube is a dense C-order array with shape [npol, nchan, nrow]. Row is the
// fastest axis, matching how casacore cells are laid out per visibility.
type Cube[T any] struct {
	NPol  int
	NChan int
	NRow  int
	Data  []T
}

// NewCube allocates a zeroed cube.
func NewCube[T any](npol, nchan, nrow int) Cube[T] {
	return Cube[T]{NPol: npol, NChan: nchan, NRow: nrow, Data: make([]T, npol*nchan*nrow)}
}

// CubeFrom wraps an existing flat slice, validating its length.
func CubeFrom[T any](npol, nchan, nrow int, data []T) (Cube[T], error) {
	if len(data) != npol*nchan*nrow {
		return Cube[T]{}, Errorf(CodeShapeMismatch, false,
			"cube data length %d does not match shape [%d,%d,%d]", len(data), npol, nchan, nrow)
	}
	return Cube[T]{NPol: npol, NChan: nchan, NRow: nrow, Data: data}, nil
}

// Index returns the flat offset of (pol, chan, row).
func (c Cube[T]) Index(p, ch, r int) int {
	return (p*c.NChan+ch)*c.NRow + r
}

// At returns the value at (pol, chan, row).
func (c Cube[T]) At(p, ch, r int) T {
	return c.Data[c.Index(p, ch, r)]
}

// Set stores a value at (pol, chan, row).
func (c *Cube[T]) Set(p, ch, r int, v T) {
	c.Data[c.Index(p, ch, r)] = v
}

// Len returns the total element count.
func (c Cube[T]) Len() int { return len(c.Data) }

// Empty reports whether the cube holds no data (an unrequested column).
func (c Cube[T]) Empty() bool { return len(c.Data) == 0 }

// Pol returns a single polarization as a [1, nchan, nrow] cube. The result
// shares backing storage with c.
func (c Cube[T]) Pol(p int) Cube[T] {
	off := p * c.NChan * c.NRow
	return Cube[T]{NPol: 1, NChan: c.NChan, NRow: c.NRow, Data: c.Data[off : off+c.NChan*c.NRow]}
}

// SliceRows copies rows [start, end) into a new cube.
func (c Cube[T]) SliceRows(start, end int) Cube[T] {
	n := end - start
	out := NewCube[T](c.NPol, c.NChan, n)
	for p := 0; p < c.NPol; p++ {
		for ch := 0; ch < c.NChan; ch++ {
			src := c.Index(p, ch, start)
			dst := out.Index(p, ch, 0)
			copy(out.Data[dst:dst+n], c.Data[src:src+n])
		}
	}
	return out
}

// Matrix is a dense C-order array with shape [npol, nrow], the layout of the
// WEIGHT and SIGMA columns.
type Matrix[T any] struct {
	NPol int
	NRow int
	Data []T
}

// NewMatrix allocates a zeroed matrix.
func NewMatrix[T any](npol, nrow int) Matrix[T] {
	return Matrix[T]{NPol: npol, NRow: nrow, Data: make([]T, npol*nrow)}
}

// MatrixFrom wraps an existing flat slice, validating its length.
func MatrixFrom[T any](npol, nrow int, data []T) (Matrix[T], error) {
	if len(data) != npol*nrow {
		return Matrix[T]{}, Errorf(CodeShapeMismatch, false,
			"matrix data length %d does not match shape [%d,%d]", len(data), npol, nrow)
	}
	return Matrix[T]{NPol: npol, NRow: nrow, Data: data}, nil
}

// Index returns the flat offset of (pol, row).
func (m Matrix[T]) Index(p, r int) int { return p*m.NRow + r }

// At returns the value at (pol, row).
func (m Matrix[T]) At(p, r int) T { return m.Data[m.Index(p, r)] }

// Set stores a value at (pol, row).
func (m *Matrix[T]) Set(p, r int, v T) { m.Data[m.Index(p, r)] = v }

// Len returns the total element count.
func (m Matrix[T]) Len() int { return len(m.Data) }

// Empty reports whether the matrix holds no data.
func (m Matrix[T]) Empty() bool { return len(m.Data) == 0 }

// Pol returns a single polarization as a [1, nrow] matrix sharing storage.
func (m Matrix[T]) Pol(p int) Matrix[T] {
	off := p * m.NRow
	return Matrix[T]{NPol: 1, NRow: m.NRow, Data: m.Data[off : off+m.NRow]}
}

// SliceRows copies rows [start, end) into a new matrix.
func (m Matrix[T]) SliceRows(start, end int) Matrix[T] {
	n := end - start
	out := NewMatrix[T](m.NPol, n)
	for p := 0; p < m.NPol; p++ {
		copy(out.Data[out.Index(p, 0):out.Index(p, 0)+n], m.Data[m.Index(p, start):m.Index(p, start)+n])
	}
	return out
}
