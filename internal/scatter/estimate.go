package scatter

import (
	"math"
	"sort"
)

// madToSigma converts a median absolute deviation to a normal-equivalent
// standard deviation (1 / Phi^-1(3/4)).
const madToSigma = 1.4826

// MADSigma estimates the standard deviation of samples from the median
// absolute deviation. Robust against the flagged-outlier tails that ruin a
// plain second moment.
func MADSigma(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	med := median(samples)
	dev := make([]float64, len(samples))
	for i, s := range samples {
		dev[i] = math.Abs(s - med)
	}
	return madToSigma * median(dev)
}

// EstimateSigmaRescale estimates the factor the weights are off by, from
// residuals that were standardized with the current factor. Well-calibrated
// data yields ~1; execution blocks exported with the pre-4.2.2 pipeline
// yield ~sqrt(2).
func EstimateSigmaRescale(re, im []float64) float64 {
	if len(re) == 0 && len(im) == 0 {
		return 1
	}
	all := make([]float64, 0, len(re)+len(im))
	all = append(all, re...)
	all = append(all, im...)
	return MADSigma(all)
}

func median(samples []float64) float64 {
	s := make([]float64, len(samples))
	copy(s, samples)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return 0.5 * (s[n/2-1] + s[n/2])
}
