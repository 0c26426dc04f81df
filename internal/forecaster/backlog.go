package forecaster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flowcast/internal/backlog"
	"flowcast/internal/forecast"
	"flowcast/internal/simulation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// RunResult describes one backlog forecast run.
type RunResult struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	Duration   string    `json:"duration"`
	Features   int       `json:"features"`
	Teams      int       `json:"teams"`
	Subjects   int       `json:"subjects"`
	Excluded   []string  `json:"excluded_teams,omitempty"`
	Failed     []string  `json:"failed_teams,omitempty"`
	Unforecast []string  `json:"unforecast_features,omitempty"`
}

// ForecastFeatures forecasts the given features of the snapshot, all features when none
// are given. Subjects are grouped by team and each group runs on its own worker. Once
// every group has finished, each feature's stored forecasts are replaced by the new ones.
//
// Teams that never completed anything and teams missing from the snapshot are excluded;
// their subjects end up without a forecast. A failing group does not stop the others
// and its error is returned together with the written-back results.
func (s *Service) ForecastFeatures(ctx context.Context, snap *backlog.Snapshot, features []*backlog.Feature) (RunResult, error) {
	if features == nil {
		features = snap.Features
	}

	begin := time.Now()
	started := s.now()
	res := RunResult{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Features:  len(features),
	}
	logger := log.With().Str("run_id", res.RunID).Logger()

	groups, order := s.buildGroups(snap, features, started)
	res.Teams = len(order)

	var runnable []*group
	for i, id := range order {
		g := groups[id]
		// One draw stream per team, fixed by first appearance.
		g.engine = s.engine.Stream(i)
		res.Subjects += len(g.subjects)
		if g.excluded {
			res.Excluded = append(res.Excluded, id)
			settleExcluded(s.engine, g)
			continue
		}
		runnable = append(runnable, g)
	}

	logger.Info().
		Int("features", res.Features).
		Int("teams", res.Teams).
		Int("subjects", res.Subjects).
		Int("trials", s.engine.Trials()).
		Msg("Starting backlog forecast")

	var eg errgroup.Group
	eg.SetLimit(s.workers)
	for _, g := range runnable {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				g.err = fmt.Errorf("team %s: %w", g.team.ID, err)
				return nil
			}
			g.err = s.runGroup(g)
			return nil
		})
	}
	_ = eg.Wait()

	var errs []error
	for _, g := range runnable {
		if g.err != nil {
			res.Failed = append(res.Failed, g.team.ID)
			errs = append(errs, g.err)
			logger.Error().Err(g.err).Str("team", g.team.ID).Msg("Team simulation failed")
		}
	}

	res.Unforecast = writeBack(groups, features, started)
	res.Duration = time.Since(begin).Round(time.Millisecond).String()

	logger.Info().
		Int("excluded", len(res.Excluded)).
		Int("failed", len(res.Failed)).
		Int("unforecast", len(res.Unforecast)).
		Str("duration", res.Duration).
		Msg("Backlog forecast finished")

	return res, errors.Join(errs...)
}

// buildGroups creates one subject per feature and contributing team, grouped by team in
// order of first appearance.
func (s *Service) buildGroups(snap *backlog.Snapshot, features []*backlog.Feature, today time.Time) (map[string]*group, []string) {
	groups := make(map[string]*group)
	var order []string

	for _, f := range features {
		for _, w := range f.Work {
			g, ok := groups[w.TeamID]
			if !ok {
				g = s.newGroup(snap, w.TeamID, today)
				groups[w.TeamID] = g
				order = append(order, w.TeamID)
			}
			g.subjects = append(g.subjects, simulation.NewSubject(w.TeamID, f.ID, w.RemainingItems))
		}
	}

	return groups, order
}

func (s *Service) newGroup(snap *backlog.Snapshot, teamID string, today time.Time) *group {
	team, ok := snap.TeamByID(teamID)
	if !ok {
		log.Warn().Str("team", teamID).Msg("Team not found in snapshot, skipping its work")
		return &group{team: backlog.Team{ID: teamID}, excluded: true}
	}

	th := team.CurrentThroughput(today, s.throughputDays)
	if th.Total() == 0 {
		log.Warn().Str("team", teamID).Int("history_days", th.History()).Msg("Team has no throughput, skipping forecast")
		return &group{team: team, throughput: th, excluded: true}
	}

	return &group{team: team, throughput: th}
}

// settleExcluded records finished subjects of an excluded team. No throughput is sampled
// because none of the passed subjects has work left.
func settleExcluded(engine *simulation.Engine, g *group) {
	var done []*simulation.Subject
	for _, sub := range g.subjects {
		if !sub.HasWorkRemaining() {
			done = append(done, sub)
		}
	}
	if len(done) > 0 {
		engine.RunTeam(g.throughput, 1, done)
	}
}

// writeBack replaces each feature's forecasts with those of its simulated subjects and
// returns the features left without any forecast.
func writeBack(groups map[string]*group, features []*backlog.Feature, at time.Time) []string {
	var unforecast []string

	for _, f := range features {
		var forecasts []forecast.WhenForecast
		seen := make(map[string]bool, len(f.Work))
		for _, w := range f.Work {
			g := groups[w.TeamID]
			if g == nil || g.err != nil || seen[w.TeamID] {
				continue
			}
			seen[w.TeamID] = true
			for _, sub := range g.subjects {
				if sub.FeatureID != f.ID {
					continue
				}
				outcomes := sub.Outcomes()
				if outcomes.Total() == 0 {
					continue
				}
				forecasts = append(forecasts, forecast.NewWhenForecast(outcomes, sub.TeamID, f.ID, sub.InitialRemaining()))
			}
		}

		f.SetForecasts(forecasts, at)
		if len(forecasts) == 0 {
			unforecast = append(unforecast, f.ID)
		}
	}

	return unforecast
}
