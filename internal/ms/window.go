package ms

// WindowChunk selects the requested columns and row window from a fully
// materialized chunk. Requests past the last row yield an empty chunk
// that still carries the descriptor frequencies. Columns absent from
// full are left empty; callers enforce their explicit-column policy
// before windowing.
func WindowChunk(full *Chunk, req *ReadRequest) *Chunk {
	nrow := full.NRow
	start := int(req.StartRow)
	if start < 0 {
		start = 0
	}
	out := &Chunk{
		DataDescID: full.DataDescID,
		StartRow:   int64(start),
		Freqs:      full.Freqs,
	}
	if start >= nrow {
		return out
	}
	end := nrow
	if req.MaxRows > 0 && start+req.MaxRows < end {
		end = start + req.MaxRows
	}
	out.NRow = end - start

	if req.Wants(ColTime) && len(full.Time) > 0 {
		out.Time = append([]float64(nil), full.Time[start:end]...)
	}
	if req.Wants(ColAntenna1) && len(full.Antenna1) > 0 {
		out.Antenna1 = append([]int32(nil), full.Antenna1[start:end]...)
	}
	if req.Wants(ColAntenna2) && len(full.Antenna2) > 0 {
		out.Antenna2 = append([]int32(nil), full.Antenna2[start:end]...)
	}
	if req.Wants(ColUVW) && len(full.U) > 0 {
		out.U = append([]float64(nil), full.U[start:end]...)
		out.V = append([]float64(nil), full.V[start:end]...)
		out.W = append([]float64(nil), full.W[start:end]...)
	}
	if req.Wants(ColWeight) && !full.Weight.Empty() {
		out.Weight = full.Weight.SliceRows(start, end)
	}
	if req.Wants(ColFlag) && !full.Flag.Empty() {
		out.Flag = full.Flag.SliceRows(start, end)
	}
	if req.Wants(ColData) && !full.Data.Empty() {
		out.Data = full.Data.SliceRows(start, end)
	}
	if req.Wants(ColModelData) && !full.Model.Empty() {
		out.Model = full.Model.SliceRows(start, end)
	}
	return out
}
