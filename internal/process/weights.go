package process

import (
	"math"

	"github.com/mpol-dev/visread/internal/ms"
)

// BroadcastWeights tiles per-row weights across nchan channels, turning the
// WEIGHT matrix [npol, nrow] into a cube [npol, nchan, nrow]. Pre-channelized
// weight spectra are rare in calibrated sets, so a single weight per row and
// polarization is assumed.
func BroadcastWeights(w ms.Matrix[float64], nchan int) (ms.Cube[float64], error) {
	if w.Empty() {
		return ms.Cube[float64]{}, ms.Errorf(ms.CodeShapeMismatch, false, "weight matrix is empty")
	}
	if nchan <= 0 {
		return ms.Cube[float64]{}, ms.Errorf(ms.CodeShapeMismatch, false, "invalid channel count %d", nchan)
	}

	out := ms.NewCube[float64](w.NPol, nchan, w.NRow)
	for p := 0; p < w.NPol; p++ {
		rowBase := w.Index(p, 0)
		for ch := 0; ch < nchan; ch++ {
			copy(out.Data[out.Index(p, ch, 0):out.Index(p, ch, 0)+w.NRow], w.Data[rowBase:rowBase+w.NRow])
		}
	}
	return out, nil
}

// RescaleWeights divides every weight by factor squared, so that the implied
// per-sample noise sigma = factor * sqrt(1/w) becomes sqrt(1/w'). A factor
// of 1 returns an unchanged copy.
func RescaleWeights(w ms.Matrix[float64], factor float64) ms.Matrix[float64] {
	out := ms.NewMatrix[float64](w.NPol, w.NRow)
	f2 := factor * factor
	for i, v := range w.Data {
		out.Data[i] = v / f2
	}
	return out
}

// Sigma converts a weight to the per-component noise standard deviation it
// claims, scaled by the rescale factor.
func Sigma(weight, factor float64) float64 {
	return factor * math.Sqrt(1.0/weight)
}
