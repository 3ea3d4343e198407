package ms

import "testing"

func TestCubeIndexing(t *testing.T) {
	c := NewCube[float64](2, 3, 4)
	if c.Len() != 24 {
		t.Fatalf("expected 24 elements, got %d", c.Len())
	}

	c.Set(1, 2, 3, 42.0)
	if got := c.At(1, 2, 3); got != 42.0 {
		t.Fatalf("expected 42.0 at (1,2,3), got %v", got)
	}
	// Row is the fastest axis.
	if idx := c.Index(1, 2, 3); idx != (1*3+2)*4+3 {
		t.Fatalf("unexpected flat index %d", idx)
	}
}

func TestCubeFromValidatesLength(t *testing.T) {
	_, err := CubeFrom(2, 2, 2, make([]float64, 7))
	if err == nil {
		t.Fatal("expected shape mismatch error")
	}
	if !IsCode(err, CodeShapeMismatch) {
		t.Fatalf("expected %s, got %v", CodeShapeMismatch, err)
	}

	c, err := CubeFrom(2, 2, 2, make([]float64, 8))
	if err != nil {
		t.Fatalf("valid shape rejected: %v", err)
	}
	if c.NPol != 2 || c.NChan != 2 || c.NRow != 2 {
		t.Fatalf("unexpected shape [%d,%d,%d]", c.NPol, c.NChan, c.NRow)
	}
}

func TestCubePolSharesStorage(t *testing.T) {
	c := NewCube[int32](2, 2, 3)
	c.Set(1, 0, 2, 7)

	p := c.Pol(1)
	if p.NPol != 1 || p.NChan != 2 || p.NRow != 3 {
		t.Fatalf("unexpected pol slice shape [%d,%d,%d]", p.NPol, p.NChan, p.NRow)
	}
	if got := p.At(0, 0, 2); got != 7 {
		t.Fatalf("expected 7 through pol view, got %d", got)
	}

	p.Set(0, 1, 1, 9)
	if got := c.At(1, 1, 1); got != 9 {
		t.Fatalf("pol view should share storage, got %d", got)
	}
}

func TestCubeSliceRows(t *testing.T) {
	c := NewCube[int32](2, 2, 5)
	for p := 0; p < 2; p++ {
		for ch := 0; ch < 2; ch++ {
			for r := 0; r < 5; r++ {
				c.Set(p, ch, r, int32(100*p+10*ch+r))
			}
		}
	}

	s := c.SliceRows(1, 4)
	if s.NRow != 3 {
		t.Fatalf("expected 3 rows, got %d", s.NRow)
	}
	if got := s.At(1, 1, 0); got != 111 {
		t.Fatalf("expected 111 at slice (1,1,0), got %d", got)
	}
	if got := s.At(0, 1, 2); got != 13 {
		t.Fatalf("expected 13 at slice (0,1,2), got %d", got)
	}
}

func TestMatrixSliceRows(t *testing.T) {
	m := NewMatrix[float64](2, 4)
	for p := 0; p < 2; p++ {
		for r := 0; r < 4; r++ {
			m.Set(p, r, float64(10*p+r))
		}
	}

	s := m.SliceRows(2, 4)
	if s.NPol != 2 || s.NRow != 2 {
		t.Fatalf("unexpected slice shape [%d,%d]", s.NPol, s.NRow)
	}
	if got := s.At(1, 1); got != 13 {
		t.Fatalf("expected 13 at slice (1,1), got %v", got)
	}
}
