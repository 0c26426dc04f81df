package forecast

import (
	"encoding/json"

	"flowcast/internal/simulation"
)

// WhenForecast is the distribution of the simulated day on which one team finished its
// share of one piece of work.
type WhenForecast struct {
	Forecast
	TeamID         string
	FeatureID      string
	RemainingItems int
}

// NewWhenForecast wraps a completion-day histogram.
func NewWhenForecast(h simulation.Histogram, teamID, featureID string, remainingItems int) WhenForecast {
	return WhenForecast{
		Forecast:       newForecast(h),
		TeamID:         teamID,
		FeatureID:      featureID,
		RemainingItems: remainingItems,
	}
}

// DaysAt returns the number of days within which p percent of the trials had finished.
func (w WhenForecast) DaysAt(p float64) int {
	return w.Percentile(p)
}

// Likelihood is the chance, in percent, of finishing within the given number of days.
func (w WhenForecast) Likelihood(days int) float64 {
	return w.ProbabilityAtOrBefore(days) * 100
}

// Summary reports the completion day for each probability, DefaultPercentiles if none given.
func (w WhenForecast) Summary(probabilities ...float64) []Point {
	if len(probabilities) == 0 {
		probabilities = DefaultPercentiles
	}
	points := make([]Point, 0, len(probabilities))
	for _, p := range probabilities {
		points = append(points, Point{Probability: p, Value: w.DaysAt(p)})
	}
	return points
}

// slower reports whether w finishes later than other.
func (w WhenForecast) slower(other WhenForecast) bool {
	if a, b := w.DaysAt(50), other.DaysAt(50); a != b {
		return a > b
	}
	return w.DaysAt(95) > other.DaysAt(95)
}

// Slowest returns the forecast that finishes last, or false when there are none.
func Slowest(forecasts []WhenForecast) (WhenForecast, bool) {
	if len(forecasts) == 0 {
		return WhenForecast{}, false
	}
	slowest := forecasts[0]
	for _, f := range forecasts[1:] {
		if f.slower(slowest) {
			slowest = f
		}
	}
	return slowest, true
}

type whenForecastJSON struct {
	TeamID         string               `json:"team_id"`
	FeatureID      string               `json:"feature_id,omitempty"`
	RemainingItems int                  `json:"remaining_items"`
	Trials         int                  `json:"trials"`
	Percentiles    []Point              `json:"percentiles"`
	Distribution   simulation.Histogram `json:"distribution"`
}

func (w WhenForecast) MarshalJSON() ([]byte, error) {
	return json.Marshal(whenForecastJSON{
		TeamID:         w.TeamID,
		FeatureID:      w.FeatureID,
		RemainingItems: w.RemainingItems,
		Trials:         w.Trials(),
		Percentiles:    w.Summary(),
		Distribution:   w.histogram,
	})
}

func (w *WhenForecast) UnmarshalJSON(data []byte) error {
	var raw whenForecastJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*w = NewWhenForecast(raw.Distribution, raw.TeamID, raw.FeatureID, raw.RemainingItems)
	return nil
}
