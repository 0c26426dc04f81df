package stats

import (
	"math"
	"time"
)

// XmRResult is an Individuals and Moving Range chart over a series of values.
type XmRResult struct {
	Average     float64   `json:"average"`
	AmR         float64   `json:"average_moving_range"`
	UNPL        float64   `json:"upper_natural_process_limit"`
	LNPL        float64   `json:"lower_natural_process_limit"`
	Values      []float64 `json:"values,omitempty"`
	MovingRange []float64 `json:"moving_ranges,omitempty"`
	Signals     []Signal  `json:"signals"`
}

// Signal is a point of special cause variation.
type Signal struct {
	Index       int    `json:"index"`
	Key         string `json:"key"`
	Type        string `json:"type"` // "outlier", "shift"
	Description string `json:"description"`
}

// Stable reports whether the chart shows no signals.
func (r XmRResult) Stable() bool {
	return len(r.Signals) == 0
}

// CalculateXmR performs the math for an Individuals and Moving Range chart.
func CalculateXmR(values []float64) XmRResult {
	return CalculateXmRWithKeys(values, nil)
}

// CalculateXmRWithKeys is CalculateXmR with a key bound to each signal.
func CalculateXmRWithKeys(values []float64, keys []string) XmRResult {
	if len(values) == 0 {
		return XmRResult{}
	}

	result := XmRResult{Values: values}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	result.Average = sum / float64(len(values))

	if len(values) > 1 {
		mrSum := 0.0
		result.MovingRange = make([]float64, len(values)-1)
		for i := range len(values) - 1 {
			mr := math.Abs(values[i+1] - values[i])
			result.MovingRange[i] = mr
			mrSum += mr
		}
		result.AmR = mrSum / float64(len(values)-1)
	}

	// Wheeler's scaling constant for individuals
	result.UNPL = result.Average + (2.66 * result.AmR)
	result.LNPL = math.Max(0, result.Average-(2.66*result.AmR))

	result.Signals = detectSignals(values, result.Average, result.UNPL, result.LNPL, keys)

	return result
}

// ThroughputStability charts the weekly throughput of the complete weeks in the days before end.
// Signals are keyed by ISO week.
func ThroughputStability(closed []time.Time, end time.Time, days int) XmRResult {
	from := SnapToStart(end.AddDate(0, 0, -days), "day")
	first := SnapToStart(from, "week")
	if first.Before(from) {
		first = first.AddDate(0, 0, 7)
	}
	last := SnapToStart(end, "week")
	if !first.Before(last) {
		return XmRResult{}
	}

	window := NewAnalysisWindow(first, last.AddDate(0, 0, -1), "week")
	buckets := BucketThroughput(closed, window)

	values := make([]float64, len(buckets))
	for i, n := range buckets {
		values[i] = float64(n)
	}
	keys := make([]string, 0, len(buckets))
	for _, b := range window.Subdivide() {
		keys = append(keys, window.GenerateLabel(b))
	}

	return CalculateXmRWithKeys(values, keys)
}

func detectSignals(values []float64, avg, unpl, lnpl float64, keys []string) []Signal {
	var signals []Signal

	keyAt := func(i int) string {
		if i < len(keys) {
			return keys[i]
		}
		return ""
	}

	for i, v := range values {
		if v > unpl {
			signals = append(signals, Signal{
				Index:       i,
				Key:         keyAt(i),
				Type:        "outlier",
				Description: "Point above Upper Natural Process Limit (UNPL)",
			})
		} else if v < lnpl {
			signals = append(signals, Signal{
				Index:       i,
				Key:         keyAt(i),
				Type:        "outlier",
				Description: "Point below Lower Natural Process Limit (LNPL)",
			})
		}
	}

	if len(values) >= 8 {
		side := 0
		count := 0
		for i, v := range values {
			currentSide := 0
			if v > avg {
				currentSide = 1
			} else if v < avg {
				currentSide = -1
			}

			if currentSide == side && currentSide != 0 {
				count++
			} else {
				side = currentSide
				count = 1
			}

			if count == 8 {
				signals = append(signals, Signal{
					Index:       i,
					Key:         keyAt(i),
					Type:        "shift",
					Description: "8 consecutive points on one side of the average (process shift)",
				})
			}
		}
	}

	return signals
}
