package process

// Grid is a dense [nchan, nrow] float array, the shape baselines take after
// per-channel unit conversion.
type Grid struct {
	NChan int
	NRow  int
	Data  []float64
}

// NewGrid allocates a zeroed grid.
func NewGrid(nchan, nrow int) Grid {
	return Grid{NChan: nchan, NRow: nrow, Data: make([]float64, nchan*nrow)}
}

// At returns the value at (chan, row).
func (g Grid) At(ch, r int) float64 { return g.Data[ch*g.NRow+r] }

// Set stores a value at (chan, row).
func (g *Grid) Set(ch, r int, v float64) { g.Data[ch*g.NRow+r] = v }

// Empty reports whether the grid holds no data.
func (g Grid) Empty() bool { return len(g.Data) == 0 }

// ConvertBaselines projects baseline coordinates in meters to wavelengths
// per channel: vals[r] * freqs[ch] / c. The result has shape [nchan, nrow].
func ConvertBaselines(vals []float64, freqs []float64) Grid {
	out := NewGrid(len(freqs), len(vals))
	for ch, f := range freqs {
		scale := f / SpeedOfLight
		base := ch * out.NRow
		for r, v := range vals {
			out.Data[base+r] = v * scale
		}
	}
	return out
}

// ConvertBaselinesKLambda is ConvertBaselines scaled to kilolambda, the
// customary unit for interferometric imaging.
func ConvertBaselinesKLambda(vals []float64, freqs []float64) Grid {
	out := ConvertBaselines(vals, freqs)
	for i := range out.Data {
		out.Data[i] *= 1e-3
	}
	return out
}
