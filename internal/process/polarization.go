package process

import "github.com/mpol-dev/visread/internal/ms"

// AverageDataPolarization collapses the polarization axis of a data cube by
// weighted mean, yielding a [1, nchan, nrow] cube. Weights are per row and
// polarization; where they sum to zero the plain mean is used instead.
func AverageDataPolarization(data ms.Cube[complex128], w ms.Matrix[float64]) (ms.Cube[complex128], error) {
	if data.Empty() {
		return ms.Cube[complex128]{}, ms.Errorf(ms.CodeShapeMismatch, false, "data cube is empty")
	}
	if w.NPol != data.NPol || w.NRow != data.NRow {
		return ms.Cube[complex128]{}, ms.Errorf(ms.CodeShapeMismatch, false,
			"weight shape [%d,%d] does not match data shape [%d,_,%d]", w.NPol, w.NRow, data.NPol, data.NRow)
	}

	out := ms.NewCube[complex128](1, data.NChan, data.NRow)
	for ch := 0; ch < data.NChan; ch++ {
		for r := 0; r < data.NRow; r++ {
			var sum complex128
			var wsum float64
			for p := 0; p < data.NPol; p++ {
				wp := w.At(p, r)
				sum += complex(wp, 0) * data.At(p, ch, r)
				wsum += wp
			}
			if wsum > 0 {
				out.Set(0, ch, r, sum/complex(wsum, 0))
			} else {
				var plain complex128
				for p := 0; p < data.NPol; p++ {
					plain += data.At(p, ch, r)
				}
				out.Set(0, ch, r, plain/complex(float64(data.NPol), 0))
			}
		}
	}
	return out, nil
}

// AverageWeightPolarization sums weights across the polarization axis,
// yielding a [1, nrow] matrix. Summing is exact for inverse-variance
// weights of a weighted mean.
func AverageWeightPolarization(w ms.Matrix[float64]) ms.Matrix[float64] {
	out := ms.NewMatrix[float64](1, w.NRow)
	for r := 0; r < w.NRow; r++ {
		var sum float64
		for p := 0; p < w.NPol; p++ {
			sum += w.At(p, r)
		}
		out.Set(0, r, sum)
	}
	return out
}

// AverageFlagPolarization ORs flags across the polarization axis: a sample
// flagged in any polarization stays flagged in the average.
func AverageFlagPolarization(f ms.Cube[bool]) ms.Cube[bool] {
	out := ms.NewCube[bool](1, f.NChan, f.NRow)
	for ch := 0; ch < f.NChan; ch++ {
		for r := 0; r < f.NRow; r++ {
			flagged := false
			for p := 0; p < f.NPol; p++ {
				if f.At(p, ch, r) {
					flagged = true
					break
				}
			}
			out.Set(0, ch, r, flagged)
		}
	}
	return out
}
