package scatter

import (
	"fmt"
	"math"
	"strings"
)

// Default histogram binning: 40 bins across [-5, 5] sigma.
const (
	DefaultBins = 40
	DefaultLo   = -5.0
	DefaultHi   = 5.0
)

// Gaussian is the standard normal density, the reference curve for
// well-calibrated residuals.
func Gaussian(x float64) float64 {
	return 1.0 / math.Sqrt(2.0*math.Pi) * math.Exp(-0.5*x*x)
}

// Histogram is a fixed-range histogram of residual samples.
type Histogram struct {
	Lo, Hi  float64
	Raw     []int     // per-bin sample counts
	Density []float64 // per-bin density (counts / (N * width)), nil unless requested
	N       int       // samples that landed in range

	Underflow int
	Overflow  int
}

// NewHistogram bins samples into the given range. With density=true the bin
// values integrate to one over [lo, hi], directly comparable to Gaussian.
func NewHistogram(samples []float64, bins int, lo, hi float64, density bool) Histogram {
	if bins <= 0 {
		bins = DefaultBins
	}
	if hi <= lo {
		lo, hi = DefaultLo, DefaultHi
	}

	h := Histogram{Lo: lo, Hi: hi, Raw: make([]int, bins)}
	width := (hi - lo) / float64(bins)
	for _, s := range samples {
		switch {
		case s < lo:
			h.Underflow++
		case s >= hi:
			// numpy includes the right edge in the last bin
			if s == hi {
				h.Raw[bins-1]++
				h.N++
			} else {
				h.Overflow++
			}
		default:
			idx := int((s - lo) / width)
			if idx >= bins {
				idx = bins - 1
			}
			h.Raw[idx]++
			h.N++
		}
	}

	if density && h.N > 0 {
		h.Density = make([]float64, bins)
		norm := 1.0 / (float64(h.N) * width)
		for i, c := range h.Raw {
			h.Density[i] = float64(c) * norm
		}
	}
	return h
}

// BinWidth returns the width of each bin.
func (h Histogram) BinWidth() float64 {
	return (h.Hi - h.Lo) / float64(len(h.Raw))
}

// BinCenters returns the midpoints of all bins.
func (h Histogram) BinCenters() []float64 {
	w := h.BinWidth()
	out := make([]float64, len(h.Raw))
	for i := range out {
		out[i] = h.Lo + (float64(i)+0.5)*w
	}
	return out
}

// RenderText draws the histogram as terminal bars of at most width columns,
// with a '+' marking the unit normal expectation per bin.
func (h Histogram) RenderText(width int) string {
	if width <= 0 {
		width = 50
	}
	maxCount := 0
	for _, c := range h.Raw {
		if c > maxCount {
			maxCount = c
		}
	}
	if maxCount == 0 {
		return "(no samples in range)\n"
	}

	binWidth := h.BinWidth()
	var b strings.Builder
	for i, c := range h.Raw {
		center := h.Lo + (float64(i)+0.5)*binWidth
		bar := c * width / maxCount
		expected := Gaussian(center) * float64(h.N) * binWidth
		mark := int(math.Round(expected * float64(width) / float64(maxCount)))
		line := []byte(strings.Repeat("#", bar) + strings.Repeat(" ", width-bar))
		if mark >= 0 && mark < width {
			line[mark] = '+'
		}
		fmt.Fprintf(&b, "%+6.2f |%s| %d\n", center, string(line), c)
	}
	return b.String()
}
