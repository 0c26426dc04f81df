package mcp

import (
	"context"
	"fmt"
	"time"

	"flowcast/internal/backlog"
	"flowcast/internal/forecast"
	"flowcast/internal/forecaster"
	"flowcast/internal/stats"
	"flowcast/internal/visuals"
)

func (s *Server) loadSnapshot(snapshot string) (*backlog.Snapshot, string, error) {
	name, err := snapshotName(snapshot, s.defaultSnapshot)
	if err != nil {
		return nil, "", err
	}
	snap, err := s.store.Get(name)
	if err != nil {
		return nil, "", err
	}
	return snap, name, nil
}

func (s *Server) loadTeam(snapshot, teamID string) (backlog.Team, error) {
	snap, _, err := s.loadSnapshot(snapshot)
	if err != nil {
		return backlog.Team{}, err
	}
	return forecaster.FindTeam(snap, teamID)
}

func (s *Server) handleForecastWhen(ctx context.Context, args whenArgs) (any, error) {
	if args.RemainingItems < 0 {
		return nil, fmt.Errorf("remaining_items must not be negative")
	}
	team, err := s.loadTeam(args.Snapshot, args.TeamID)
	if err != nil {
		return nil, err
	}

	fc, err := s.service.When(ctx, team, args.RemainingItems)
	if err != nil {
		return nil, err
	}

	var charts map[string]string
	if s.enableMermaid {
		charts = map[string]string{
			"when":         visuals.GenerateWhenChart(fc),
			"distribution": visuals.GenerateDistributionChart(fc.Distribution(), "Completion Probability", "Day"),
		}
	}

	today := s.service.Today()
	return WrapResponse(fc, charts, []string{
		fmt.Sprintf("85%% confidence: done within %d days (%s).", fc.DaysAt(85), today.AddDate(0, 0, fc.DaysAt(85)).Format(time.DateOnly)),
	}), nil
}

func (s *Server) handleForecastHowMany(_ context.Context, args howManyArgs) (any, error) {
	team, err := s.loadTeam(args.Snapshot, args.TeamID)
	if err != nil {
		return nil, err
	}

	days := args.Days
	if args.TargetDate != "" {
		target, err := parseDate(args.TargetDate)
		if err != nil {
			return nil, err
		}
		days = backlog.DaysUntil(target, s.service.Today())
	}
	if days <= 0 {
		return nil, fmt.Errorf("days must be > 0 (or target_date must be in the future)")
	}

	fc, err := s.service.HowManyForTeam(team, days)
	if err != nil {
		return nil, err
	}

	var charts map[string]string
	if s.enableMermaid {
		th := s.service.Throughput(team)
		charts = map[string]string{
			"how_many":   visuals.GenerateHowManyChart(fc),
			"throughput": visuals.GenerateThroughputChart(th.Counts(), stats.TrailingWindow(s.service.Today(), th.History())),
		}
	}

	return WrapResponse(fc, charts, []string{
		"Confidence levels read as 'at least N items': higher confidence means fewer items.",
	}), nil
}

// FeatureSummary is the per-feature outcome of a backlog run.
type FeatureSummary struct {
	ID             string                  `json:"id"`
	Name           string                  `json:"name,omitempty"`
	RemainingItems int                     `json:"remaining_items"`
	SlowestTeam    string                  `json:"slowest_team,omitempty"`
	Dates          map[string]string       `json:"dates,omitempty"`
	Forecasts      []forecast.WhenForecast `json:"forecasts,omitempty"`
}

func (s *Server) handleForecastBacklog(ctx context.Context, args backlogArgs) (any, error) {
	snap, name, err := s.loadSnapshot(args.Snapshot)
	if err != nil {
		return nil, err
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	features := snap.FeaturesForTeams(args.TeamIDs)
	res, runErr := s.service.ForecastFeatures(ctx, snap, features)

	today := s.service.Today()
	summaries := make([]FeatureSummary, 0, len(features))
	for _, f := range features {
		summaries = append(summaries, summarizeFeature(f, today))
	}

	var guidance []string
	if len(res.Excluded) > 0 {
		guidance = append(guidance, fmt.Sprintf("Teams %v have no throughput or are unknown; their work has no forecast.", res.Excluded))
	}
	if runErr != nil {
		guidance = append(guidance, fmt.Sprintf("Some team simulations failed: %v", runErr))
	}

	if args.Save {
		snap.UpdatedAt = today
		if err := s.store.Save(name); err != nil {
			return nil, err
		}
		if err := s.store.Archive(name, features, today); err != nil {
			return nil, err
		}
	}

	var charts map[string]string
	if s.enableMermaid {
		charts = map[string]string{
			"report": visuals.GenerateReport(snap, visuals.ReportOptions{Today: today, Charts: false}),
		}
	}

	return WrapResponse(map[string]any{
		"run":      res,
		"features": summaries,
	}, charts, guidance), nil
}

func summarizeFeature(f *backlog.Feature, today time.Time) FeatureSummary {
	sum := FeatureSummary{
		ID:             f.ID,
		Name:           f.Name,
		RemainingItems: f.RemainingWork(),
		Forecasts:      f.Forecasts,
	}

	slowest, ok := f.Forecast()
	if !ok {
		return sum
	}
	sum.SlowestTeam = slowest.TeamID
	sum.Dates = make(map[string]string)
	for _, pt := range slowest.Summary() {
		sum.Dates[fmt.Sprintf("p%.0f", pt.Probability)] = today.AddDate(0, 0, pt.Value).Format(time.DateOnly)
	}
	return sum
}

func (s *Server) handleForecastManual(ctx context.Context, args manualArgs) (any, error) {
	if args.RemainingItems < 0 {
		return nil, fmt.Errorf("remaining_items must not be negative")
	}
	team, err := s.loadTeam(args.Snapshot, args.TeamID)
	if err != nil {
		return nil, err
	}

	var target *time.Time
	if args.TargetDate != "" {
		t, err := parseDate(args.TargetDate)
		if err != nil {
			return nil, err
		}
		target = &t
	}

	res, err := s.service.Manual(ctx, team, args.RemainingItems, target)
	if err != nil {
		return nil, err
	}

	var charts map[string]string
	if s.enableMermaid {
		charts = map[string]string{"when": visuals.GenerateWhenChart(res.When)}
		if res.HowMany != nil {
			charts["how_many"] = visuals.GenerateHowManyChart(*res.HowMany)
		}
	}

	return WrapResponse(res, charts, nil), nil
}

func (s *Server) handleBacktestHowMany(_ context.Context, args backtestArgs) (any, error) {
	team, err := s.loadTeam(args.Snapshot, args.TeamID)
	if err != nil {
		return nil, err
	}

	start, err := parseDate(args.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(args.EndDate)
	if err != nil {
		return nil, err
	}

	window := args.WindowDays
	if window == 0 {
		window = forecaster.DefaultThroughputDays
	}

	res, err := s.service.Backtest(team, start, end, window)
	if err != nil {
		return nil, err
	}

	var guidance []string
	if missed := len(res.Percentiles) - countMet(res.Percentiles); missed > 0 {
		guidance = append(guidance, fmt.Sprintf("Actual delivery (%d items) fell short of %d confidence levels; the history before the period may not represent it.", res.ActualItems, missed))
	}
	if !res.Stability.Stable() {
		guidance = append(guidance, fmt.Sprintf("Weekly throughput in the sampled window shows %d signals of special cause variation; treat the forecast with care.", len(res.Stability.Signals)))
	}

	return WrapResponse(res, nil, guidance), nil
}

func (s *Server) handleForecastHistory(_ context.Context, args historyArgs) (any, error) {
	name, err := snapshotName(args.Snapshot, s.defaultSnapshot)
	if err != nil {
		return nil, err
	}

	records, err := s.store.History(name)
	if err != nil {
		return nil, err
	}
	records = backlog.FilterHistory(records, args.FeatureID, args.Limit)

	var guidance []string
	if len(records) == 0 {
		guidance = append(guidance, "No archived forecasts yet. Run forecast_backlog with save=true to start a history.")
	}
	return WrapResponse(records, nil, guidance), nil
}

func countMet(points []forecaster.BacktestPoint) int {
	n := 0
	for _, p := range points {
		if p.Met {
			n++
		}
	}
	return n
}
