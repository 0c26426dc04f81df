package simulation

import "slices"

// Throughput is an immutable series of items completed per day over a trailing window.
// Index 0 is the oldest day.
type Throughput struct {
	counts []int
	total  int
	max    int
}

// NewThroughput copies the daily counts into an immutable series.
// Negative counts are clamped to zero.
func NewThroughput(counts []int) Throughput {
	c := make([]int, len(counts))
	th := Throughput{counts: c}
	for i, v := range counts {
		if v < 0 {
			v = 0
		}
		c[i] = v
		th.total += v
		if v > th.max {
			th.max = v
		}
	}
	return th
}

// History is the number of days in the series.
func (t Throughput) History() int {
	return len(t.counts)
}

// CountOnDay returns the items completed on the given day index.
func (t Throughput) CountOnDay(day int) int {
	return t.counts[day]
}

// Total is the sum of all daily counts.
func (t Throughput) Total() int {
	return t.total
}

// Max is the highest single-day count.
func (t Throughput) Max() int {
	return t.max
}

// Counts returns a copy of the daily series.
func (t Throughput) Counts() []int {
	return slices.Clone(t.counts)
}

// Histogram maps an outcome (a day index or an item count) to the number of trials that produced it.
type Histogram map[int]int

// Add records one occurrence of the outcome.
func (h Histogram) Add(outcome int) {
	h[outcome]++
}

// Total is the number of recorded trials.
func (h Histogram) Total() int {
	total := 0
	for _, c := range h {
		total += c
	}
	return total
}

// Keys returns the recorded outcomes in ascending order.
func (h Histogram) Keys() []int {
	keys := make([]int, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clone returns an independent copy.
func (h Histogram) Clone() Histogram {
	c := make(Histogram, len(h))
	for k, v := range h {
		c[k] = v
	}
	return c
}
