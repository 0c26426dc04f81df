package engine

import (
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"time"

	"flowcast/internal/backlog"
)

type GeneratorConfig struct {
	Scenario     string
	Distribution string // "uniform" or "weibull"
	Teams        int
	Features     int
	HistoryDays  int
	Now          time.Time
	Seed         uint64
}

// Generate builds a synthetic backlog snapshot. Each team closes items with random gaps
// between them; features get work from one to three teams.
func Generate(cfg GeneratorConfig) *backlog.Snapshot {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 90
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1))

	snap := &backlog.Snapshot{UpdatedAt: cfg.Now}

	for t := 0; t < cfg.Teams; t++ {
		team := backlog.Team{
			ID:         fmt.Sprintf("team-%d", t+1),
			Name:       fmt.Sprintf("Team %d", t+1),
			FeatureWIP: 1 + rng.IntN(3),
		}

		// The last team never delivered anything in the chaos scenario.
		if cfg.Scenario == "chaos" && t == cfg.Teams-1 && cfg.Teams > 1 {
			snap.Teams = append(snap.Teams, team)
			continue
		}

		start := cfg.Now.AddDate(0, 0, -cfg.HistoryDays)
		for at := start; ; {
			gap := closeGap(rng, cfg, at.Sub(start).Hours()/24/float64(cfg.HistoryDays))
			at = at.Add(time.Duration(gap * 24 * float64(time.Hour)))
			if !at.Before(cfg.Now) {
				break
			}
			team.ClosedDates = append(team.ClosedDates, at)
		}
		snap.Teams = append(snap.Teams, team)
	}

	for f := 0; f < cfg.Features; f++ {
		feature := &backlog.Feature{
			ID:   fmt.Sprintf("FEAT-%d", f+1),
			Name: fmt.Sprintf("Feature %d", f+1),
		}

		contributors := 1 + rng.IntN(min(3, max(1, cfg.Teams)))
		offset := rng.IntN(max(1, cfg.Teams))
		for c := 0; c < contributors && c < cfg.Teams; c++ {
			total := 3 + rng.IntN(20)
			feature.Work = append(feature.Work, backlog.FeatureWork{
				TeamID:         snap.Teams[(offset+c)%cfg.Teams].ID,
				TotalItems:     total,
				RemainingItems: rng.IntN(total + 1),
			})
		}
		snap.Features = append(snap.Features, feature)
	}

	return snap
}

// closeGap samples the days between two closed items. progress is the share of the
// history already generated, used by the drift scenario.
func closeGap(rng *rand.Rand, cfg GeneratorConfig, progress float64) float64 {
	k, lambda := 2.5, 0.6 // Mild: a little under two items per day
	switch cfg.Scenario {
	case "chaos":
		k = 0.8
		if cfg.Distribution == "weibull" {
			lambda = 1.2
		}
	case "drift":
		k = 2.5 - (1.7 * progress) // Shift 2.5 -> 0.8
		lambda = 0.6 + (0.9 * progress)
	}

	if cfg.Distribution == "weibull" {
		return weibullSample(rng, k, lambda)
	}

	gap := 0.2 + rng.Float64()*0.8
	if cfg.Scenario == "chaos" && rng.Float64() < 0.05 {
		gap += 3 + rng.Float64()*5 // Controlled Black Swans
	}
	if cfg.Scenario == "drift" && progress > 0.5 {
		gap *= 2.0
	}
	return gap
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	// X = lambda * (-ln(1-u))^(1/k)
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}

// Save writes the snapshot as <outDir>/<name>.json.
func Save(outDir string, name string, snap *backlog.Snapshot) (string, error) {
	path := filepath.Join(outDir, fmt.Sprintf("%s.json", name))
	return path, backlog.WriteSnapshot(path, snap)
}
