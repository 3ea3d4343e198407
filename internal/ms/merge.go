package ms

// MergeChunks concatenates row-contiguous chunks of one descriptor into a
// single chunk. Slices must share DataDescID, channel count and column set;
// they are assumed to arrive in row order.
func MergeChunks(slices []*Chunk) (*Chunk, error) {
	if len(slices) == 0 {
		return &Chunk{}, nil
	}
	if len(slices) == 1 {
		return slices[0], nil
	}

	first := slices[0]
	total := 0
	for _, s := range slices {
		if s.DataDescID != first.DataDescID {
			return nil, Errorf(CodeShapeMismatch, false,
				"cannot merge chunks of descriptors %d and %d", first.DataDescID, s.DataDescID)
		}
		if s.NumChan() != first.NumChan() {
			return nil, Errorf(CodeShapeMismatch, false,
				"cannot merge chunks with %d and %d channels", first.NumChan(), s.NumChan())
		}
		total += s.NRow
	}

	out := &Chunk{
		DataDescID: first.DataDescID,
		StartRow:   first.StartRow,
		NRow:       total,
		Freqs:      first.Freqs,
	}
	if first.Time != nil {
		out.Time = mergeScalar(slices, total, func(s *Chunk) []float64 { return s.Time })
	}
	if first.Antenna1 != nil {
		out.Antenna1 = mergeScalar(slices, total, func(s *Chunk) []int32 { return s.Antenna1 })
	}
	if first.Antenna2 != nil {
		out.Antenna2 = mergeScalar(slices, total, func(s *Chunk) []int32 { return s.Antenna2 })
	}
	if first.U != nil {
		out.U = mergeScalar(slices, total, func(s *Chunk) []float64 { return s.U })
		out.V = mergeScalar(slices, total, func(s *Chunk) []float64 { return s.V })
		out.W = mergeScalar(slices, total, func(s *Chunk) []float64 { return s.W })
	}

	var err error
	if !first.Weight.Empty() {
		if out.Weight, err = mergeMatrix(slices, total, func(s *Chunk) Matrix[float64] { return s.Weight }); err != nil {
			return nil, err
		}
	}
	if !first.Flag.Empty() {
		if out.Flag, err = mergeCube(slices, total, func(s *Chunk) Cube[bool] { return s.Flag }); err != nil {
			return nil, err
		}
	}
	if !first.Data.Empty() {
		if out.Data, err = mergeCube(slices, total, func(s *Chunk) Cube[complex128] { return s.Data }); err != nil {
			return nil, err
		}
	}
	if !first.Model.Empty() {
		if out.Model, err = mergeCube(slices, total, func(s *Chunk) Cube[complex128] { return s.Model }); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func mergeScalar[T any](slices []*Chunk, total int, sel func(*Chunk) []T) []T {
	out := make([]T, 0, total)
	for _, s := range slices {
		out = append(out, sel(s)...)
	}
	return out
}

func mergeMatrix[T any](slices []*Chunk, total int, sel func(*Chunk) Matrix[T]) (Matrix[T], error) {
	npol := sel(slices[0]).NPol
	out := NewMatrix[T](npol, total)
	row := 0
	for _, s := range slices {
		m := sel(s)
		if m.NPol != npol {
			return Matrix[T]{}, Errorf(CodeShapeMismatch, false,
				"cannot merge matrices with %d and %d polarizations", npol, m.NPol)
		}
		for p := 0; p < npol; p++ {
			copy(out.Data[out.Index(p, row):], m.Data[m.Index(p, 0):m.Index(p, 0)+m.NRow])
		}
		row += m.NRow
	}
	return out, nil
}

func mergeCube[T any](slices []*Chunk, total int, sel func(*Chunk) Cube[T]) (Cube[T], error) {
	c0 := sel(slices[0])
	out := NewCube[T](c0.NPol, c0.NChan, total)
	row := 0
	for _, s := range slices {
		c := sel(s)
		if c.NPol != c0.NPol || c.NChan != c0.NChan {
			return Cube[T]{}, Errorf(CodeShapeMismatch, false,
				"cannot merge cubes with shapes [%d,%d] and [%d,%d]", c0.NPol, c0.NChan, c.NPol, c.NChan)
		}
		for p := 0; p < c.NPol; p++ {
			for ch := 0; ch < c.NChan; ch++ {
				copy(out.Data[out.Index(p, ch, row):], c.Data[c.Index(p, ch, 0):c.Index(p, ch, 0)+c.NRow])
			}
		}
		row += c.NRow
	}
	return out, nil
}
