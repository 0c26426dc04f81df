package backlog

import (
	"slices"
	"testing"
	"time"

	"flowcast/internal/forecast"
	"flowcast/internal/simulation"
)

func TestTeam_CurrentThroughput(t *testing.T) {
	today := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

	explicit := Team{Throughput: []int{3, 0, 1}, ClosedDates: []time.Time{today}}
	if got := explicit.CurrentThroughput(today, 30).Counts(); !slices.Equal(got, []int{3, 0, 1}) {
		t.Errorf("Expected explicit series to win, got %v", got)
	}

	derived := Team{
		ThroughputHistory: 3,
		ClosedDates:       []time.Time{today, today.AddDate(0, 0, -2), today.AddDate(0, 0, -10)},
	}
	if got := derived.CurrentThroughput(today, 30).Counts(); !slices.Equal(got, []int{1, 0, 1}) {
		t.Errorf("Expected [1 0 1], got %v", got)
	}

	fallback := Team{ClosedDates: []time.Time{today}}
	if got := fallback.CurrentThroughput(today, 14).History(); got != 14 {
		t.Errorf("Expected default history of 14 days, got %d", got)
	}
}

func TestTeam_ThroughputBefore(t *testing.T) {
	cutoff := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	team := Team{ClosedDates: []time.Time{cutoff, cutoff.AddDate(0, 0, -1), cutoff.AddDate(0, 0, -3)}}

	got := team.ThroughputBefore(cutoff, 3).Counts()
	if !slices.Equal(got, []int{1, 0, 1}) {
		t.Errorf("Expected [1 0 1], got %v", got)
	}
}

func TestTeam_EffectiveWIP(t *testing.T) {
	for wip, expected := range map[int]int{-1: 1, 0: 1, 1: 1, 3: 3} {
		if got := (Team{FeatureWIP: wip}).EffectiveWIP(); got != expected {
			t.Errorf("EffectiveWIP(%d) = %d, want %d", wip, got, expected)
		}
	}
}

func TestFeature_Likelihood(t *testing.T) {
	done := &Feature{Work: []FeatureWork{{TeamID: "a", RemainingItems: 0}}}
	if l, ok := done.Likelihood(17); !ok || l != 100 {
		t.Errorf("Expected 100 for a finished feature, got %v, %v", l, ok)
	}

	unforecasted := &Feature{Work: []FeatureWork{{TeamID: "a", RemainingItems: 3}}}
	if _, ok := unforecasted.Likelihood(17); ok {
		t.Errorf("Expected no likelihood without forecasts")
	}

	multi := &Feature{Work: []FeatureWork{{TeamID: "a", RemainingItems: 3}, {TeamID: "b", RemainingItems: 9}}}
	multi.SetForecasts([]forecast.WhenForecast{
		forecast.NewWhenForecast(simulation.Histogram{5: 100}, "a", "F", 3),
		forecast.NewWhenForecast(simulation.Histogram{5: 40, 20: 60}, "b", "F", 9),
	}, time.Now())

	if l, ok := multi.Likelihood(10); !ok || l != 40 {
		t.Errorf("Expected least likely team (40), got %v", l)
	}

	slowest, ok := multi.Forecast()
	if !ok || slowest.TeamID != "b" {
		t.Errorf("Expected team b as feature forecast, got %q", slowest.TeamID)
	}

	partial := &Feature{Work: []FeatureWork{{TeamID: "a", RemainingItems: 2}, {TeamID: "b", RemainingItems: 4}, {TeamID: "c", RemainingItems: 0}}}
	partial.SetForecasts([]forecast.WhenForecast{
		forecast.NewWhenForecast(simulation.Histogram{2: 100}, "a", "F", 2),
	}, time.Now())

	if _, ok := partial.Likelihood(2); ok {
		t.Errorf("Expected no likelihood while team b has work but no forecast")
	}
	if _, ok := partial.Forecast(); ok {
		t.Errorf("Expected no feature forecast while team b has work but no forecast")
	}
}

func TestDaysUntil(t *testing.T) {
	today := time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		target   time.Time
		expected int
	}{
		{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2024, 3, 18, 9, 0, 0, 0, time.UTC), 17},
		{time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), -2},
	}

	for _, tt := range tests {
		if got := DaysUntil(tt.target, today); got != tt.expected {
			t.Errorf("DaysUntil(%s) = %d, want %d", tt.target.Format("2006-01-02"), got, tt.expected)
		}
	}
}

func TestSnapshot_FeaturesForTeams(t *testing.T) {
	snap := &Snapshot{
		Features: []*Feature{
			{ID: "1", Work: []FeatureWork{{TeamID: "a"}}},
			{ID: "2", Work: []FeatureWork{{TeamID: "b"}}},
			{ID: "3", Work: []FeatureWork{{TeamID: "a"}, {TeamID: "b"}}},
		},
	}

	if got := snap.FeaturesForTeams(nil); len(got) != 3 {
		t.Errorf("Expected all features, got %d", len(got))
	}

	got := snap.FeaturesForTeams([]string{"b"})
	if len(got) != 2 || got[0].ID != "2" || got[1].ID != "3" {
		t.Errorf("Unexpected features for team b: %v", got)
	}
}
