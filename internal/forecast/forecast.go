// Package forecast turns simulated outcome histograms into queryable probability distributions.
package forecast

import (
	"math"
	"slices"

	"flowcast/internal/simulation"
)

// DefaultPercentiles are the probabilities reported by summaries.
var DefaultPercentiles = []float64{50, 70, 85, 95}

// Forecast is an immutable distribution over simulated outcomes.
type Forecast struct {
	histogram simulation.Histogram
	keys      []int
	trials    int
}

func newForecast(h simulation.Histogram) Forecast {
	c := h.Clone()
	return Forecast{
		histogram: c,
		keys:      c.Keys(),
		trials:    c.Total(),
	}
}

// Trials is the number of recorded trials.
func (f Forecast) Trials() int {
	return f.trials
}

// Distribution returns a copy of the underlying histogram.
func (f Forecast) Distribution() simulation.Histogram {
	return f.histogram.Clone()
}

// IsEmpty reports whether no trial was recorded.
func (f Forecast) IsEmpty() bool {
	return f.trials == 0
}

// Percentile returns the smallest outcome by which p percent of the trials were reached.
// p is clamped to [0, 100]. An empty forecast returns 0.
func (f Forecast) Percentile(p float64) int {
	if f.trials == 0 {
		return 0
	}

	threshold := f.threshold(p)
	cumulative := 0
	for _, k := range f.keys {
		cumulative += f.histogram[k]
		if cumulative >= threshold {
			return k
		}
	}
	return f.keys[len(f.keys)-1]
}

// ProbabilityAtOrBefore is the share of trials with an outcome less than or equal to key.
func (f Forecast) ProbabilityAtOrBefore(key int) float64 {
	if f.trials == 0 {
		return 0
	}

	cumulative := 0
	for _, k := range f.keys {
		if k > key {
			break
		}
		cumulative += f.histogram[k]
	}
	return float64(cumulative) / float64(f.trials)
}

// descendingPercentile walks outcomes from the largest down.
func (f Forecast) descendingPercentile(p float64) int {
	if f.trials == 0 {
		return 0
	}

	threshold := f.threshold(p)
	cumulative := 0
	for _, k := range slices.Backward(f.keys) {
		cumulative += f.histogram[k]
		if cumulative >= threshold {
			return k
		}
	}
	return f.keys[0]
}

func (f Forecast) threshold(p float64) int {
	p = math.Max(0, math.Min(100, p))
	return max(1, int(math.Ceil(p*float64(f.trials)/100)))
}

// Point is one row of a forecast summary.
type Point struct {
	Probability float64 `json:"probability"`
	Value       int     `json:"value"`
}
