package forecast

import (
	"encoding/json"

	"flowcast/internal/simulation"
)

// HowManyForecast is the distribution of items completed within a fixed number of days.
type HowManyForecast struct {
	Forecast
	Days int
}

// NewHowManyForecast wraps an item-count histogram.
func NewHowManyForecast(h simulation.Histogram, days int) HowManyForecast {
	return HowManyForecast{
		Forecast: newForecast(h),
		Days:     days,
	}
}

// ItemsAtConfidence returns the item count reached or exceeded in at least p percent of the trials.
func (h HowManyForecast) ItemsAtConfidence(p float64) int {
	return h.descendingPercentile(p)
}

// Likelihood is the chance, in percent, of completing at least the given number of items.
func (h HowManyForecast) Likelihood(items int) float64 {
	if h.Trials() == 0 {
		return 0
	}
	return (1 - h.ProbabilityAtOrBefore(items-1)) * 100
}

// Summary reports the item count for each confidence level, DefaultPercentiles if none given.
func (h HowManyForecast) Summary(probabilities ...float64) []Point {
	if len(probabilities) == 0 {
		probabilities = DefaultPercentiles
	}
	points := make([]Point, 0, len(probabilities))
	for _, p := range probabilities {
		points = append(points, Point{Probability: p, Value: h.ItemsAtConfidence(p)})
	}
	return points
}

type howManyForecastJSON struct {
	Days         int                  `json:"days"`
	Trials       int                  `json:"trials"`
	Percentiles  []Point              `json:"percentiles"`
	Distribution simulation.Histogram `json:"distribution"`
}

func (h HowManyForecast) MarshalJSON() ([]byte, error) {
	return json.Marshal(howManyForecastJSON{
		Days:         h.Days,
		Trials:       h.Trials(),
		Percentiles:  h.Summary(),
		Distribution: h.histogram,
	})
}

func (h *HowManyForecast) UnmarshalJSON(data []byte) error {
	var raw howManyForecastJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*h = NewHowManyForecast(raw.Distribution, raw.Days)
	return nil
}
