package simulation

// Subject is one team's share of one piece of remaining work during a forecast run.
// Its remaining counter is reset at the start of every trial.
type Subject struct {
	TeamID    string
	FeatureID string // empty for ad-hoc forecasts

	initialRemaining int
	remaining        int
	outcomes         Histogram
}

// NewSubject creates a subject with a fixed amount of initial work.
func NewSubject(teamID, featureID string, initialRemaining int) *Subject {
	if initialRemaining < 0 {
		initialRemaining = 0
	}
	return &Subject{
		TeamID:           teamID,
		FeatureID:        featureID,
		initialRemaining: initialRemaining,
		remaining:        initialRemaining,
		outcomes:         make(Histogram),
	}
}

// InitialRemaining is the work the subject started with.
func (s *Subject) InitialRemaining() int {
	return s.initialRemaining
}

// Remaining is the work left in the current trial.
func (s *Subject) Remaining() int {
	return s.remaining
}

// HasWorkRemaining reports whether the subject is still active in the current trial.
func (s *Subject) HasWorkRemaining() bool {
	return s.remaining > 0
}

// Outcomes returns a copy of the recorded completion days.
func (s *Subject) Outcomes() Histogram {
	return s.outcomes.Clone()
}

func (s *Subject) reset() {
	s.remaining = s.initialRemaining
}
