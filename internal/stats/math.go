package stats

import "slices"

// CalculateMedianDiscrete finds the median of integer samples such as items closed per day.
// It is reported next to backtests as the typical daily throughput of the sampled window.
func CalculateMedianDiscrete(values []int) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2
}
