// Package forecaster runs forecasts over a backlog: it groups simulation subjects by team,
// simulates the groups concurrently and writes the results back onto the features.
package forecaster

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"flowcast/internal/backlog"
	"flowcast/internal/forecast"
	"flowcast/internal/simulation"
)

var (
	ErrEmptyHistory    = errors.New("throughput history is empty")
	ErrNoThroughput    = errors.New("team has not completed any items in its throughput history")
	ErrNegativeDays    = errors.New("days must not be negative")
	ErrUnknownTeam     = errors.New("unknown team")
	ErrInvalidBacktest = errors.New("invalid backtest parameters")
)

// DefaultThroughputDays is the trailing window used for teams that carry closed dates.
const DefaultThroughputDays = 30

// Service runs forecasts on a shared engine.
type Service struct {
	engine         *simulation.Engine
	workers        int
	throughputDays int
	now            func() time.Time
}

// NewService creates a forecasting service. workers limits how many team groups are
// simulated at once; values below one mean one per CPU.
func NewService(engine *simulation.Engine, workers, throughputDays int) *Service {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if throughputDays < 1 {
		throughputDays = DefaultThroughputDays
	}
	return &Service{
		engine:         engine,
		workers:        workers,
		throughputDays: throughputDays,
		now:            time.Now,
	}
}

// SetClock replaces the source of "today".
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Today returns the current time of the service clock.
func (s *Service) Today() time.Time {
	return s.now()
}

// Trials is the number of trials per simulation.
func (s *Service) Trials() int {
	return s.engine.Trials()
}

// Throughput returns the team's current daily throughput.
func (s *Service) Throughput(team backlog.Team) simulation.Throughput {
	return team.CurrentThroughput(s.now(), s.throughputDays)
}

// HowMany forecasts how many items are completed within days.
// An all-zero history is valid and yields zero items in every trial.
func (s *Service) HowMany(th simulation.Throughput, days int) (forecast.HowManyForecast, error) {
	if days < 0 {
		return forecast.HowManyForecast{}, fmt.Errorf("%w: %d", ErrNegativeDays, days)
	}
	if th.History() == 0 {
		return forecast.HowManyForecast{}, ErrEmptyHistory
	}
	return forecast.NewHowManyForecast(s.engine.HowMany(th, days), days), nil
}

// HowManyForTeam runs HowMany on the team's current throughput.
func (s *Service) HowManyForTeam(team backlog.Team, days int) (forecast.HowManyForecast, error) {
	fc, err := s.HowMany(s.Throughput(team), days)
	if err != nil {
		return fc, fmt.Errorf("team %s: %w", team.ID, err)
	}
	return fc, nil
}

// When forecasts the completion day of remaining items for a single team,
// using one synthetic subject on the same path as backlog forecasts.
func (s *Service) When(ctx context.Context, team backlog.Team, remaining int) (forecast.WhenForecast, error) {
	if err := ctx.Err(); err != nil {
		return forecast.WhenForecast{}, err
	}

	th := s.Throughput(team)
	subject := simulation.NewSubject(team.ID, "", remaining)

	if subject.HasWorkRemaining() {
		if th.History() == 0 {
			return forecast.WhenForecast{}, fmt.Errorf("team %s: %w", team.ID, ErrEmptyHistory)
		}
		if th.Total() == 0 {
			return forecast.WhenForecast{}, fmt.Errorf("team %s: %w", team.ID, ErrNoThroughput)
		}
	}

	g := &group{team: team, throughput: th, subjects: []*simulation.Subject{subject}}
	if err := s.runGroup(g); err != nil {
		return forecast.WhenForecast{}, err
	}
	return forecast.NewWhenForecast(subject.Outcomes(), team.ID, "", subject.InitialRemaining()), nil
}

// group is one team's share of a forecast run.
type group struct {
	engine     *simulation.Engine
	team       backlog.Team
	throughput simulation.Throughput
	subjects   []*simulation.Subject
	excluded   bool
	err        error
}

func (s *Service) runGroup(g *group) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("team %s: simulation panicked: %v", g.team.ID, r)
		}
	}()

	engine := g.engine
	if engine == nil {
		engine = s.engine
	}
	engine.RunTeam(g.throughput, g.team.EffectiveWIP(), g.subjects)
	return nil
}
