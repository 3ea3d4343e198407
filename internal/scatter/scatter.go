// Package scatter computes standardized residual statistics of visibility
// data against a model column. If the weights are calibrated correctly the
// residuals (DATA - MODEL_DATA) / sigma follow a unit normal; departures
// reveal execution blocks whose weights need rescaling.
package scatter

import (
	"context"
	"math"

	"github.com/mpol-dev/visread/internal/ms"
)

// Residuals standardizes one polarization of a chunk:
// (DATA - MODEL_DATA) / (sigmaRescale * sqrt(1/WEIGHT)), with the row weight
// broadcast across channels. Real and imaginary parts are returned
// separately. Requires the chunk to carry MODEL_DATA.
func Residuals(ch *ms.Chunk, pol int, sigmaRescale float64, applyFlags bool) (re, im []float64, err error) {
	if !ch.HasModel() {
		return nil, nil, ms.Errorf(ms.CodeColumnMissing, false,
			"chunk has no MODEL_DATA; populate the model column (e.g. tclean with savemodel=modelcolumn) and retry")
	}
	if pol < 0 || pol >= ch.Data.NPol {
		return nil, nil, ms.Errorf(ms.CodeShapeMismatch, false,
			"polarization %d out of range [0,%d)", pol, ch.Data.NPol)
	}
	if sigmaRescale <= 0 {
		sigmaRescale = 1
	}

	nchan, nrow := ch.Data.NChan, ch.Data.NRow
	re = make([]float64, 0, nchan*nrow)
	im = make([]float64, 0, nchan*nrow)
	for c := 0; c < nchan; c++ {
		for r := 0; r < nrow; r++ {
			if applyFlags && !ch.Flag.Empty() && ch.Flag.At(pol, c, r) {
				continue
			}
			w := ch.Weight.At(pol, r)
			if w <= 0 {
				continue
			}
			sigma := sigmaRescale * math.Sqrt(1.0/w)
			res := ch.Data.At(pol, c, r) - ch.Model.At(pol, c, r)
			re = append(re, real(res)/sigma)
			im = append(im, imag(res)/sigma)
		}
	}
	return re, im, nil
}

// AnalyzeOptions configures a whole-table scatter pass.
type AnalyzeOptions struct {
	// DataDescIDs restricts the pass; empty means every descriptor.
	DataDescIDs []int

	// SigmaRescale supplies per-spectral-window factors already known
	// (keyed by spw ID). Unlisted windows use 1.
	SigmaRescale map[int]float64

	// ApplyFlags drops flagged samples before computing statistics.
	ApplyFlags bool

	// Histogram binning; zero values take the defaults.
	Bins   int
	Lo, Hi float64

	// MaxRowsPerChunk bounds single reads. Zero reads each descriptor whole.
	MaxRowsPerChunk int
}

// PolScatter summarizes one polarization of one descriptor.
type PolScatter struct {
	Pol       int
	N         int
	SigmaRe   float64
	SigmaIm   float64
	Suggested float64
	HistRe    Histogram
	HistIm    Histogram
}

// Result summarizes one descriptor.
type Result struct {
	DataDescID       int
	SpectralWindowID int
	Rows             int64
	Pols             []PolScatter
}

// Analyze runs the scatter pass over a table. The required columns are
// requested explicitly, so a table without MODEL_DATA fails with
// CodeColumnMissing rather than returning vacuous statistics.
func Analyze(ctx context.Context, t ms.Table, opts AnalyzeOptions) ([]Result, error) {
	descs, err := t.DataDescriptions(ctx)
	if err != nil {
		return nil, err
	}

	wanted := map[int]bool{}
	for _, id := range opts.DataDescIDs {
		wanted[id] = true
	}

	bins, lo, hi := opts.Bins, opts.Lo, opts.Hi
	if bins == 0 {
		bins = DefaultBins
	}
	if lo == 0 && hi == 0 {
		lo, hi = DefaultLo, DefaultHi
	}

	var results []Result
	for _, desc := range descs {
		if len(wanted) > 0 && !wanted[desc.ID] {
			continue
		}

		chunk, err := readDescriptor(ctx, t, desc, opts.MaxRowsPerChunk)
		if err != nil {
			return nil, err
		}
		if chunk.NRow == 0 {
			continue
		}

		factor := 1.0
		if f, ok := opts.SigmaRescale[desc.SpectralWindowID]; ok && f > 0 {
			factor = f
		}

		res := Result{
			DataDescID:       desc.ID,
			SpectralWindowID: desc.SpectralWindowID,
			Rows:             int64(chunk.NRow),
		}
		for p := 0; p < chunk.NumPol(); p++ {
			re, im, err := Residuals(chunk, p, factor, opts.ApplyFlags)
			if err != nil {
				return nil, err
			}
			ps := PolScatter{
				Pol:     p,
				N:       len(re),
				SigmaRe: MADSigma(re),
				SigmaIm: MADSigma(im),
				HistRe:  NewHistogram(re, bins, lo, hi, true),
				HistIm:  NewHistogram(im, bins, lo, hi, true),
			}
			ps.Suggested = factor * EstimateSigmaRescale(re, im)
			res.Pols = append(res.Pols, ps)
		}
		results = append(results, res)
	}
	return results, nil
}

func readDescriptor(ctx context.Context, t ms.Table, desc *ms.DataDescription, maxRows int) (*ms.Chunk, error) {
	cols := []string{ms.ColWeight, ms.ColFlag, ms.ColData, ms.ColModelData}
	if maxRows <= 0 {
		return t.ReadChunk(ctx, &ms.ReadRequest{DataDescID: desc.ID, Columns: cols})
	}

	var slices []*ms.Chunk
	var start int64
	for {
		ch, err := t.ReadChunk(ctx, &ms.ReadRequest{
			DataDescID: desc.ID,
			Columns:    cols,
			StartRow:   start,
			MaxRows:    maxRows,
		})
		if err != nil {
			return nil, err
		}
		if ch.NRow == 0 {
			break
		}
		slices = append(slices, ch)
		start += int64(ch.NRow)
	}
	return ms.MergeChunks(slices)
}
