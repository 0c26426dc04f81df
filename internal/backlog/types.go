// Package backlog holds the teams and features a forecast run reads and writes back to.
package backlog

import (
	"slices"
	"time"

	"flowcast/internal/forecast"
	"flowcast/internal/simulation"
	"flowcast/internal/stats"
)

// Team supplies throughput history and a feature WIP limit.
// Throughput is either a ready daily series or derived from ClosedDates.
type Team struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	FeatureWIP        int         `json:"feature_wip"`
	Throughput        []int       `json:"throughput,omitempty"`
	ClosedDates       []time.Time `json:"closed_dates,omitempty"`
	ThroughputHistory int         `json:"throughput_history_days,omitempty"`
}

// EffectiveWIP is the feature WIP used by the simulation; values below one mean one.
func (t Team) EffectiveWIP() int {
	return max(1, t.FeatureWIP)
}

// CurrentThroughput returns the team's trailing throughput ending today.
// An explicit series wins over closed dates.
func (t Team) CurrentThroughput(today time.Time, defaultDays int) simulation.Throughput {
	if len(t.Throughput) > 0 {
		return simulation.NewThroughput(t.Throughput)
	}

	days := t.ThroughputHistory
	if days <= 0 {
		days = defaultDays
	}
	return simulation.NewThroughput(stats.DailyThroughput(t.ClosedDates, today, days))
}

// ThroughputBefore returns the daily throughput over the given number of days before cutoff.
func (t Team) ThroughputBefore(cutoff time.Time, days int) simulation.Throughput {
	return simulation.NewThroughput(stats.DailyThroughput(t.ClosedDates, cutoff.AddDate(0, 0, -1), days))
}

// FeatureWork is one team's share of a feature.
type FeatureWork struct {
	TeamID         string `json:"team_id"`
	RemainingItems int    `json:"remaining_items"`
	TotalItems     int    `json:"total_items"`
}

// Feature is a higher-level piece of work that one or more teams contribute to.
type Feature struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	Work         []FeatureWork           `json:"work"`
	Forecasts    []forecast.WhenForecast `json:"forecasts,omitempty"`
	ForecastedAt *time.Time              `json:"forecasted_at,omitempty"`
}

// RemainingWork sums the remaining items across all teams.
func (f *Feature) RemainingWork() int {
	total := 0
	for _, w := range f.Work {
		total += w.RemainingItems
	}
	return total
}

// HasTeam reports whether the team contributes to the feature.
func (f *Feature) HasTeam(teamID string) bool {
	for _, w := range f.Work {
		if w.TeamID == teamID {
			return true
		}
	}
	return false
}

// SetForecasts replaces all previously stored forecasts.
func (f *Feature) SetForecasts(forecasts []forecast.WhenForecast, at time.Time) {
	f.Forecasts = forecasts
	f.ForecastedAt = &at
}

// Forecast returns the forecast of the slowest contributing team. There is none while
// any team with remaining work lacks a forecast.
func (f *Feature) Forecast() (forecast.WhenForecast, bool) {
	if !f.fullyForecast() {
		return forecast.WhenForecast{}, false
	}
	return forecast.Slowest(f.Forecasts)
}

// Likelihood is the chance, in percent, that every contributing team finishes within days.
// It takes the least likely team rather than a joint distribution. A feature without
// remaining work is certain; one with a team lacking a forecast has no likelihood.
func (f *Feature) Likelihood(days int) (float64, bool) {
	if f.RemainingWork() == 0 {
		return 100, true
	}
	if len(f.Forecasts) == 0 || !f.fullyForecast() {
		return 0, false
	}

	lowest := 100.0
	for _, fc := range f.Forecasts {
		lowest = min(lowest, fc.Likelihood(days))
	}
	return lowest, true
}

// fullyForecast reports whether every team with remaining work has a forecast.
func (f *Feature) fullyForecast() bool {
	for _, w := range f.Work {
		if w.RemainingItems <= 0 {
			continue
		}
		if !slices.ContainsFunc(f.Forecasts, func(fc forecast.WhenForecast) bool { return fc.TeamID == w.TeamID }) {
			return false
		}
	}
	return true
}

// LikelihoodForDate is Likelihood for the number of days between today and target.
func (f *Feature) LikelihoodForDate(target, today time.Time) (float64, bool) {
	return f.Likelihood(DaysUntil(target, today))
}

// DaysUntil counts calendar days from today to target; past dates give zero or less.
func DaysUntil(target, today time.Time) int {
	t := stats.SnapToStart(target, "day")
	d := stats.SnapToStart(today.In(target.Location()), "day")
	return int(t.Sub(d).Round(24*time.Hour).Hours() / 24)
}

// Snapshot is the backlog state a forecast run reads from and writes back to.
type Snapshot struct {
	Teams     []Team     `json:"teams"`
	Features  []*Feature `json:"features"`
	UpdatedAt time.Time  `json:"updated_at,omitempty"`
}

// TeamByID finds a team in the snapshot.
func (s *Snapshot) TeamByID(id string) (Team, bool) {
	for _, t := range s.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

// FeaturesForTeams returns the features any of the given teams contribute to.
// An empty list returns all features.
func (s *Snapshot) FeaturesForTeams(teamIDs []string) []*Feature {
	if len(teamIDs) == 0 {
		return s.Features
	}

	var res []*Feature
	for _, f := range s.Features {
		for _, id := range teamIDs {
			if f.HasTeam(id) {
				res = append(res, f)
				break
			}
		}
	}
	return res
}
