package pipeline

import "math"

// Quantile returns the p-quantile (0 <= p <= 1) of a pre-sorted
// slice, interpolating linearly between the order statistics at
// positions floor(h) and floor(h)+1 where h = (n-1)p. It returns 0
// for an empty slice.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	v := sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
	// Keep rounding from stepping past the upper neighbour.
	return math.Min(v, sorted[lo+1])
}
