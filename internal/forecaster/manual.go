package forecaster

import (
	"context"
	"fmt"
	"time"

	"flowcast/internal/backlog"
	"flowcast/internal/forecast"
)

// ManualResult answers "when would these items be done, and how likely is a target date".
type ManualResult struct {
	TeamID         string                    `json:"team_id"`
	RemainingItems int                       `json:"remaining_items"`
	When           forecast.WhenForecast     `json:"when"`
	TargetDate     *time.Time                `json:"target_date,omitempty"`
	TargetDays     int                       `json:"target_days,omitempty"`
	Likelihood     *float64                  `json:"likelihood,omitempty"`
	HowMany        *forecast.HowManyForecast `json:"how_many,omitempty"`
}

// FindTeam looks a team up in the snapshot.
func FindTeam(snap *backlog.Snapshot, teamID string) (backlog.Team, error) {
	team, ok := snap.TeamByID(teamID)
	if !ok {
		return backlog.Team{}, fmt.Errorf("%w: %s", ErrUnknownTeam, teamID)
	}
	return team, nil
}

// Manual forecasts remaining items for one team. With a target date it also reports the
// likelihood of finishing by then and how many items fit until that date.
func (s *Service) Manual(ctx context.Context, team backlog.Team, remaining int, target *time.Time) (ManualResult, error) {
	when, err := s.When(ctx, team, remaining)
	if err != nil {
		return ManualResult{}, err
	}

	res := ManualResult{
		TeamID:         team.ID,
		RemainingItems: when.RemainingItems,
		When:           when,
	}
	if target == nil {
		return res, nil
	}

	days := backlog.DaysUntil(*target, s.now())
	if days < 0 {
		return ManualResult{}, fmt.Errorf("target date %s: %w", target.Format(time.DateOnly), ErrNegativeDays)
	}

	howMany, err := s.HowManyForTeam(team, days)
	if err != nil {
		return ManualResult{}, err
	}

	likelihood := when.Likelihood(days)
	res.TargetDate = target
	res.TargetDays = days
	res.Likelihood = &likelihood
	res.HowMany = &howMany
	return res, nil
}
