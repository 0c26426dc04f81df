package stats

import (
	"time"
)

// BucketThroughput counts closed items per bucket of the window.
// Dates outside the window are ignored.
func BucketThroughput(closed []time.Time, window AnalysisWindow) []int {
	buckets := make([]int, len(window.Subdivide()))

	for _, c := range closed {
		if c.IsZero() {
			continue
		}
		idx := window.FindBucketIndex(c.In(window.Start.Location()))
		if idx >= 0 && idx < len(buckets) {
			buckets[idx]++
		}
	}

	return buckets
}

// DailyThroughput returns the items closed per day over the trailing number of days ending on end.
func DailyThroughput(closed []time.Time, end time.Time, days int) []int {
	return BucketThroughput(closed, TrailingWindow(end, days))
}

// CountClosedBetween counts items closed in the half-open interval [start, end).
func CountClosedBetween(closed []time.Time, start, end time.Time) int {
	count := 0
	for _, c := range closed {
		if !c.Before(start) && c.Before(end) {
			count++
		}
	}
	return count
}
