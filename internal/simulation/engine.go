package simulation

import (
	"flowcast/internal/random"
)

// DefaultTrials is the number of trials per simulation when none is configured.
const DefaultTrials = 10000

// Engine performs the Monte-Carlo simulation.
// It holds no per-run state, so one Engine can serve several team groups concurrently
// as long as its Source is safe for concurrent use.
type Engine struct {
	rng    random.Source
	trials int
}

func NewEngine(rng random.Source, trials int) *Engine {
	if trials <= 0 {
		trials = DefaultTrials
	}
	return &Engine{
		rng:    rng,
		trials: trials,
	}
}

// Trials returns the number of trials each simulation runs.
func (e *Engine) Trials() int {
	return e.trials
}

// Stream returns an engine with the same trial count drawing from the given stream
// of this engine's source.
func (e *Engine) Stream(i int) *Engine {
	return &Engine{
		rng:    random.Derive(e.rng, i),
		trials: e.trials,
	}
}

// SampleDailyThroughput bootstraps one future day by drawing a historical day with replacement.
// The throughput history must not be empty.
func (e *Engine) SampleDailyThroughput(th Throughput) int {
	return th.CountOnDay(e.rng.IntN(th.History()))
}

// HowMany accumulates sampled throughput over the given number of days for every trial.
// The resulting histogram is keyed by items completed.
func (e *Engine) HowMany(th Throughput, days int) Histogram {
	results := make(Histogram)

	for trial := 0; trial < e.trials; trial++ {
		total := 0
		for day := 0; day < days; day++ {
			total += e.SampleDailyThroughput(th)
		}
		results.Add(total)
	}

	return results
}

// RunTeam simulates all subjects owned by one team until each has finished, once per trial,
// recording the day every subject completes. Subjects without initial work are recorded
// at day 0 for every trial without being simulated.
//
// The throughput history must contain at least one positive day, otherwise the
// per-trial loop never terminates.
func (e *Engine) RunTeam(th Throughput, featureWIP int, subjects []*Subject) {
	if featureWIP < 1 {
		featureWIP = 1
	}

	pending := make([]*Subject, 0, len(subjects))
	for _, s := range subjects {
		if s.initialRemaining == 0 {
			s.outcomes[0] += e.trials
			continue
		}
		pending = append(pending, s)
	}

	if len(pending) == 0 {
		return
	}

	active := make([]*Subject, 0, len(pending))

	for trial := 0; trial < e.trials; trial++ {
		for _, s := range pending {
			s.reset()
		}

		for day := 1; anyRemaining(pending); day++ {
			active = e.simulateDay(th, featureWIP, pending, day, active)
		}
	}
}

// simulateDay draws today's throughput and attributes each completion to a random
// subject among the first featureWIP active ones.
func (e *Engine) simulateDay(th Throughput, featureWIP int, subjects []*Subject, day int, active []*Subject) []*Subject {
	throughput := e.SampleDailyThroughput(th)

	for closed := 0; closed < throughput; closed++ {
		active = collectActive(subjects, active[:0])
		if len(active) == 0 {
			break
		}

		slots := min(featureWIP, len(active))
		s := active[e.rng.IntN(slots)]
		s.remaining--

		if s.remaining == 0 {
			s.outcomes.Add(day)
		}
	}

	return active
}

func collectActive(subjects []*Subject, dst []*Subject) []*Subject {
	for _, s := range subjects {
		if s.remaining > 0 {
			dst = append(dst, s)
		}
	}
	return dst
}

func anyRemaining(subjects []*Subject) bool {
	for _, s := range subjects {
		if s.remaining > 0 {
			return true
		}
	}
	return false
}
