package forecaster

import (
	"fmt"
	"time"

	"flowcast/internal/backlog"
	"flowcast/internal/forecast"
	"flowcast/internal/stats"
)

const (
	minBacktestAgeDays    = 14
	minBacktestPeriodDays = 14
	maxBacktestWindowDays = 365
)

// BacktestResult compares a How Many forecast made at start with what actually closed
// between start and end.
type BacktestResult struct {
	TeamID                string                   `json:"team_id"`
	Start                 time.Time                `json:"start"`
	End                   time.Time                `json:"end"`
	WindowDays            int                      `json:"window_days"`
	Days                  int                      `json:"days"`
	MedianDailyThroughput float64                  `json:"median_daily_throughput"`
	Forecast              forecast.HowManyForecast `json:"forecast"`
	ActualItems           int                      `json:"actual_items"`
	Percentiles           []BacktestPoint          `json:"percentiles"`
	Stability             stats.XmRResult          `json:"stability"`
}

// BacktestPoint is one confidence level of a backtest.
type BacktestPoint struct {
	Probability float64 `json:"probability"`
	Forecast    int     `json:"forecast"`
	Met         bool    `json:"met"`
}

// Backtest forecasts the items closed in [start, end) from the windowDays of closed dates
// before start and compares the forecast with the actual count.
func (s *Service) Backtest(team backlog.Team, start, end time.Time, windowDays int) (BacktestResult, error) {
	today := s.now()

	if age := backlog.DaysUntil(start, today); -age < minBacktestAgeDays {
		return BacktestResult{}, fmt.Errorf("%w: start must be at least %d days ago", ErrInvalidBacktest, minBacktestAgeDays)
	}
	days := backlog.DaysUntil(end, start)
	if days < minBacktestPeriodDays {
		return BacktestResult{}, fmt.Errorf("%w: period must span at least %d days", ErrInvalidBacktest, minBacktestPeriodDays)
	}
	if end.After(today) {
		return BacktestResult{}, fmt.Errorf("%w: end must not be in the future", ErrInvalidBacktest)
	}
	if windowDays < 1 || windowDays > maxBacktestWindowDays {
		return BacktestResult{}, fmt.Errorf("%w: window must be between 1 and %d days", ErrInvalidBacktest, maxBacktestWindowDays)
	}

	th := team.ThroughputBefore(start, windowDays)
	if th.Total() == 0 {
		return BacktestResult{}, fmt.Errorf("team %s: %w", team.ID, ErrNoThroughput)
	}

	fc, err := s.HowMany(th, days)
	if err != nil {
		return BacktestResult{}, err
	}

	actual := stats.CountClosedBetween(team.ClosedDates, stats.SnapToStart(start, "day"), stats.SnapToStart(end, "day"))

	points := make([]BacktestPoint, 0, len(forecast.DefaultPercentiles))
	for _, pt := range fc.Summary() {
		points = append(points, BacktestPoint{
			Probability: pt.Probability,
			Forecast:    pt.Value,
			Met:         actual >= pt.Value,
		})
	}

	return BacktestResult{
		TeamID:                team.ID,
		Start:                 start,
		End:                   end,
		WindowDays:            windowDays,
		Days:                  days,
		MedianDailyThroughput: stats.CalculateMedianDiscrete(th.Counts()),
		Forecast:              fc,
		ActualItems:           actual,
		Percentiles:           points,
		Stability:             stats.ThroughputStability(team.ClosedDates, stats.SnapToStart(start, "day"), windowDays),
	}, nil
}
