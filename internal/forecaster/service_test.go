package forecaster

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"testing"
	"time"

	"flowcast/internal/backlog"
	"flowcast/internal/forecast"
	"flowcast/internal/random"
	"flowcast/internal/simulation"
)

const testTrials = 200

var testToday = time.Date(2024, 6, 30, 10, 0, 0, 0, time.UTC)

func newTestService(workers int) *Service {
	svc := NewService(simulation.NewEngine(random.NewLocked(7), testTrials), workers, 30)
	svc.SetClock(func() time.Time { return testToday })
	return svc
}

func TestForecastFeatures_WriteBack(t *testing.T) {
	snap := &backlog.Snapshot{
		Teams: []backlog.Team{
			{ID: "a", FeatureWIP: 1, Throughput: []int{1}},
			{ID: "b", FeatureWIP: 2, Throughput: []int{0, 0, 0}},
		},
		Features: []*backlog.Feature{
			{ID: "F1", Work: []backlog.FeatureWork{{TeamID: "a", RemainingItems: 2}, {TeamID: "b", RemainingItems: 4}}},
			{ID: "F2", Work: []backlog.FeatureWork{{TeamID: "a", RemainingItems: 3}}},
			{ID: "F3", Work: []backlog.FeatureWork{{TeamID: "a", RemainingItems: 0}, {TeamID: "b", RemainingItems: 0}}},
			{ID: "F4", Work: []backlog.FeatureWork{{TeamID: "ghost", RemainingItems: 5}}},
		},
	}

	stale := forecast.NewWhenForecast(simulation.Histogram{99: 1}, "ghost", "F4", 5)
	snap.Features[3].SetForecasts([]forecast.WhenForecast{stale}, testToday.AddDate(0, 0, -7))

	svc := newTestService(2)
	res, err := svc.ForecastFeatures(context.Background(), snap, nil)
	if err != nil {
		t.Fatalf("ForecastFeatures failed: %v", err)
	}

	if res.RunID == "" || res.Features != 4 || res.Teams != 3 || res.Subjects != 6 {
		t.Errorf("Unexpected run result %+v", res)
	}
	if !slices.Equal(res.Excluded, []string{"b", "ghost"}) {
		t.Errorf("Expected teams b and ghost excluded, got %v", res.Excluded)
	}
	if !slices.Equal(res.Unforecast, []string{"F4"}) {
		t.Errorf("Expected F4 without forecast, got %v", res.Unforecast)
	}

	// One slot and one item per day: F1's share always finishes first.
	f1 := snap.Features[0]
	if len(f1.Forecasts) != 1 || f1.Forecasts[0].TeamID != "a" {
		t.Fatalf("Expected only team a to forecast F1, got %+v", f1.Forecasts)
	}
	if got := f1.Forecasts[0].Distribution(); len(got) != 1 || got[2] != testTrials {
		t.Errorf("F1: expected all trials on day 2, got %v", got)
	}
	if got := snap.Features[1].Forecasts[0].Distribution(); len(got) != 1 || got[5] != testTrials {
		t.Errorf("F2: expected all trials on day 5, got %v", got)
	}

	f3 := snap.Features[2]
	if len(f3.Forecasts) != 2 {
		t.Fatalf("Expected finished work of both teams to be recorded, got %d forecasts", len(f3.Forecasts))
	}
	for _, fc := range f3.Forecasts {
		if got := fc.Distribution(); len(got) != 1 || got[0] != testTrials {
			t.Errorf("F3 team %s: expected {0: %d}, got %v", fc.TeamID, testTrials, got)
		}
	}

	f4 := snap.Features[3]
	if len(f4.Forecasts) != 0 {
		t.Errorf("Expected stale forecast to be replaced, got %+v", f4.Forecasts)
	}
	if f4.ForecastedAt == nil || !f4.ForecastedAt.Equal(testToday) {
		t.Errorf("Expected ForecastedAt to be updated")
	}
}

func TestForecastFeatures_ExcludedTeamLeavesFeatureOpen(t *testing.T) {
	snap := &backlog.Snapshot{
		Teams: []backlog.Team{
			{ID: "a", FeatureWIP: 1, Throughput: []int{1}},
			{ID: "b", FeatureWIP: 1, Throughput: []int{0, 0, 0}},
		},
		Features: []*backlog.Feature{
			{ID: "F1", Work: []backlog.FeatureWork{{TeamID: "a", RemainingItems: 2}, {TeamID: "b", RemainingItems: 4}}},
		},
	}

	if _, err := newTestService(2).ForecastFeatures(context.Background(), snap, nil); err != nil {
		t.Fatalf("ForecastFeatures failed: %v", err)
	}

	f := snap.Features[0]
	if len(f.Forecasts) != 1 {
		t.Fatalf("Expected team a's forecast to be stored, got %d", len(f.Forecasts))
	}
	if l, ok := f.Likelihood(2); ok {
		t.Errorf("Expected no likelihood while team b cannot be forecast, got %v", l)
	}
	if fc, ok := f.Forecast(); ok {
		t.Errorf("Expected no feature forecast while team b cannot be forecast, got team %s", fc.TeamID)
	}
}

// boundPanicSource always draws 0 and panics when asked for its bound.
type boundPanicSource struct {
	bound int
}

func (s boundPanicSource) IntN(n int) int {
	if n == s.bound {
		panic(fmt.Sprintf("unexpected bound %d", n))
	}
	return 0
}

func TestForecastFeatures_FailedGroupKeepsOthers(t *testing.T) {
	snap := &backlog.Snapshot{
		Teams: []backlog.Team{
			{ID: "a", FeatureWIP: 1, Throughput: []int{1}},
			{ID: "x", FeatureWIP: 1, Throughput: []int{1, 1, 1, 1, 1, 1, 1}},
		},
		Features: []*backlog.Feature{
			{ID: "F1", Work: []backlog.FeatureWork{{TeamID: "a", RemainingItems: 2}}},
			{ID: "F2", Work: []backlog.FeatureWork{{TeamID: "x", RemainingItems: 3}}},
			{ID: "F3", Work: []backlog.FeatureWork{{TeamID: "a", RemainingItems: 1}, {TeamID: "x", RemainingItems: 1}}},
		},
	}

	// Only team x samples from a seven-day history.
	svc := NewService(simulation.NewEngine(boundPanicSource{bound: 7}, testTrials), 2, 30)
	svc.SetClock(func() time.Time { return testToday })

	res, err := svc.ForecastFeatures(context.Background(), snap, nil)
	if err == nil || !strings.Contains(err.Error(), "team x") {
		t.Fatalf("Expected the failure of team x, got %v", err)
	}
	if !slices.Equal(res.Failed, []string{"x"}) {
		t.Errorf("Expected only team x to fail, got %v", res.Failed)
	}
	if len(res.Excluded) != 0 {
		t.Errorf("Expected no excluded teams, got %v", res.Excluded)
	}
	if !slices.Equal(res.Unforecast, []string{"F2"}) {
		t.Errorf("Expected F2 without forecast, got %v", res.Unforecast)
	}

	if got := snap.Features[0].Forecasts[0].Distribution(); len(got) != 1 || got[2] != testTrials {
		t.Errorf("F1: expected all trials on day 2, got %v", got)
	}

	f3 := snap.Features[2]
	if len(f3.Forecasts) != 1 || f3.Forecasts[0].TeamID != "a" {
		t.Fatalf("F3: expected only team a's forecast, got %+v", f3.Forecasts)
	}
	if _, ok := f3.Forecast(); ok {
		t.Errorf("F3: expected no feature forecast while team x failed")
	}
}

func TestForecastFeatures_SeededRunsRepeat(t *testing.T) {
	build := func() *backlog.Snapshot {
		snap := &backlog.Snapshot{}
		for i := range 4 {
			teamID := fmt.Sprintf("team-%d", i)
			snap.Teams = append(snap.Teams, backlog.Team{ID: teamID, FeatureWIP: 2, Throughput: []int{0, 1, 3, 0, 2, i}})
			for j := range 3 {
				snap.Features = append(snap.Features, &backlog.Feature{
					ID:   fmt.Sprintf("F-%d-%d", i, j),
					Work: []backlog.FeatureWork{{TeamID: teamID, RemainingItems: 3 + j*5}},
				})
			}
		}
		return snap
	}

	run := func() *backlog.Snapshot {
		snap := build()
		svc := NewService(simulation.NewEngine(random.NewLocked(7), 2000), 4, 30)
		svc.SetClock(func() time.Time { return testToday })
		if _, err := svc.ForecastFeatures(context.Background(), snap, nil); err != nil {
			t.Fatalf("ForecastFeatures failed: %v", err)
		}
		return snap
	}

	first := run()
	for attempt := range 5 {
		again := run()
		for i, f := range first.Features {
			want := f.Forecasts[0].Distribution()
			got := again.Features[i].Forecasts[0].Distribution()
			if !maps.Equal(want, got) {
				t.Fatalf("Run %d: feature %s differs from the first run", attempt+2, f.ID)
			}
		}
	}
}

func TestForecastFeatures_Subset(t *testing.T) {
	snap := &backlog.Snapshot{
		Teams: []backlog.Team{{ID: "a", FeatureWIP: 1, Throughput: []int{2, 1}}},
		Features: []*backlog.Feature{
			{ID: "F1", Work: []backlog.FeatureWork{{TeamID: "a", RemainingItems: 2}}},
			{ID: "F2", Work: []backlog.FeatureWork{{TeamID: "a", RemainingItems: 3}}},
		},
	}

	svc := newTestService(1)
	if _, err := svc.ForecastFeatures(context.Background(), snap, snap.Features[1:]); err != nil {
		t.Fatalf("ForecastFeatures failed: %v", err)
	}

	if len(snap.Features[0].Forecasts) != 0 || snap.Features[0].ForecastedAt != nil {
		t.Errorf("Feature outside the subset was touched")
	}
	if len(snap.Features[1].Forecasts) != 1 {
		t.Errorf("Expected a forecast for F2")
	}
}

func TestForecastFeatures_ManyTeamsConcurrently(t *testing.T) {
	snap := &backlog.Snapshot{}
	for i := range 12 {
		teamID := fmt.Sprintf("team-%d", i)
		snap.Teams = append(snap.Teams, backlog.Team{ID: teamID, FeatureWIP: 1 + i%3, Throughput: []int{0, 1, 3, 0, 2}})
		for j := range 3 {
			snap.Features = append(snap.Features, &backlog.Feature{
				ID:   fmt.Sprintf("F-%d-%d", i, j),
				Work: []backlog.FeatureWork{{TeamID: teamID, RemainingItems: 2 + j*4}},
			})
		}
	}

	svc := newTestService(4)
	res, err := svc.ForecastFeatures(context.Background(), snap, nil)
	if err != nil {
		t.Fatalf("ForecastFeatures failed: %v", err)
	}
	if len(res.Excluded) != 0 || len(res.Failed) != 0 {
		t.Errorf("Unexpected excluded %v or failed %v teams", res.Excluded, res.Failed)
	}

	for _, f := range snap.Features {
		if len(f.Forecasts) != 1 {
			t.Fatalf("Feature %s: expected 1 forecast, got %d", f.ID, len(f.Forecasts))
		}
		fc := f.Forecasts[0]
		if fc.Trials() != testTrials {
			t.Errorf("Feature %s: expected %d trials, got %d", f.ID, testTrials, fc.Trials())
		}
		if fc.DaysAt(0) < 1 {
			t.Errorf("Feature %s: completion before day 1", f.ID)
		}
	}
}

func TestForecastFeatures_Cancelled(t *testing.T) {
	snap := &backlog.Snapshot{
		Teams: []backlog.Team{{ID: "a", FeatureWIP: 1, Throughput: []int{1}}},
		Features: []*backlog.Feature{
			{ID: "F1", Work: []backlog.FeatureWork{{TeamID: "a", RemainingItems: 2}}},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestService(1).ForecastFeatures(ctx, snap, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if !slices.Equal(res.Failed, []string{"a"}) {
		t.Errorf("Expected team a to fail, got %v", res.Failed)
	}
	if len(snap.Features[0].Forecasts) != 0 {
		t.Errorf("Failed group must not produce a forecast")
	}
}

func TestRunGroup_RecoversPanic(t *testing.T) {
	svc := newTestService(1)
	g := &group{
		team:       backlog.Team{ID: "broken"},
		throughput: simulation.NewThroughput(nil),
		subjects:   []*simulation.Subject{simulation.NewSubject("broken", "F", 3)},
	}

	if err := svc.runGroup(g); err == nil {
		t.Errorf("Expected panic to be converted into an error")
	}
}

func TestService_When(t *testing.T) {
	svc := newTestService(1)
	ctx := context.Background()

	fc, err := svc.When(ctx, backlog.Team{ID: "a", FeatureWIP: 3, Throughput: []int{2}}, 7)
	if err != nil {
		t.Fatalf("When failed: %v", err)
	}
	if got := fc.Distribution(); len(got) != 1 || got[4] != testTrials {
		t.Errorf("Expected all trials on day 4, got %v", got)
	}
	if fc.RemainingItems != 7 || fc.FeatureID != "" {
		t.Errorf("Unexpected forecast metadata %+v", fc)
	}

	idle := backlog.Team{ID: "idle", Throughput: []int{0, 0}}
	if _, err := svc.When(ctx, idle, 3); !errors.Is(err, ErrNoThroughput) {
		t.Errorf("Expected ErrNoThroughput, got %v", err)
	}

	done, err := svc.When(ctx, idle, 0)
	if err != nil {
		t.Fatalf("When with no remaining work failed: %v", err)
	}
	if got := done.Distribution(); got[0] != testTrials {
		t.Errorf("Expected {0: %d}, got %v", testTrials, got)
	}
}

func TestService_HowMany(t *testing.T) {
	svc := newTestService(1)

	if _, err := svc.HowMany(simulation.NewThroughput(nil), 5); !errors.Is(err, ErrEmptyHistory) {
		t.Errorf("Expected ErrEmptyHistory, got %v", err)
	}
	if _, err := svc.HowMany(simulation.NewThroughput([]int{1}), -1); !errors.Is(err, ErrNegativeDays) {
		t.Errorf("Expected ErrNegativeDays, got %v", err)
	}

	fc, err := svc.HowMany(simulation.NewThroughput([]int{0, 0, 0, 0, 0}), 5)
	if err != nil {
		t.Fatalf("HowMany failed: %v", err)
	}
	if got := fc.Distribution(); len(got) != 1 || got[0] != testTrials {
		t.Errorf("Expected {0: %d}, got %v", testTrials, got)
	}
}

func TestService_Manual(t *testing.T) {
	svc := newTestService(1)
	ctx := context.Background()
	team := backlog.Team{ID: "a", FeatureWIP: 1, Throughput: []int{1}}

	target := testToday.AddDate(0, 0, 10)
	res, err := svc.Manual(ctx, team, 5, &target)
	if err != nil {
		t.Fatalf("Manual failed: %v", err)
	}
	if res.TargetDays != 10 {
		t.Errorf("Expected 10 target days, got %d", res.TargetDays)
	}
	if res.Likelihood == nil || *res.Likelihood != 100 {
		t.Errorf("Expected likelihood 100, got %v", res.Likelihood)
	}
	if res.HowMany == nil || res.HowMany.ItemsAtConfidence(95) != 10 {
		t.Errorf("Expected 10 items by the target date")
	}

	noTarget, err := svc.Manual(ctx, team, 5, nil)
	if err != nil {
		t.Fatalf("Manual without target failed: %v", err)
	}
	if noTarget.Likelihood != nil || noTarget.HowMany != nil || noTarget.When.DaysAt(50) != 5 {
		t.Errorf("Unexpected result without target: %+v", noTarget)
	}

	past := testToday.AddDate(0, 0, -3)
	if _, err := svc.Manual(ctx, team, 5, &past); !errors.Is(err, ErrNegativeDays) {
		t.Errorf("Expected ErrNegativeDays for a past target, got %v", err)
	}
}

func TestFindTeam(t *testing.T) {
	snap := &backlog.Snapshot{Teams: []backlog.Team{{ID: "a"}}}

	if _, err := FindTeam(snap, "a"); err != nil {
		t.Errorf("Expected team a, got %v", err)
	}
	if _, err := FindTeam(snap, "b"); !errors.Is(err, ErrUnknownTeam) {
		t.Errorf("Expected ErrUnknownTeam, got %v", err)
	}
}
