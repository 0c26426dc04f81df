package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"flowcast/cmd/mockgen/engine"
)

func main() {
	scenario := flag.String("scenario", "mild", "Scenario to generate: mild, chaos, drift")
	distribution := flag.String("distribution", "uniform", "Distribution to use: uniform, weibull")
	outDir := flag.String("out", "./cache", "Output directory for the snapshot")
	name := flag.String("name", "backlog", "Snapshot name")
	teams := flag.Int("teams", 4, "Number of teams to generate")
	features := flag.Int("features", 12, "Number of features to generate")
	history := flag.Int("history", 90, "Days of closed-item history per team")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario:     *scenario,
		Distribution: *distribution,
		Teams:        *teams,
		Features:     *features,
		HistoryDays:  *history,
		Now:          time.Now(),
		Seed:         *seed,
	}

	fmt.Printf("Generating scenario '%s' (Distribution: %s, Teams: %d, Features: %d) to %s...\n", cfg.Scenario, cfg.Distribution, cfg.Teams, cfg.Features, *outDir)

	snap := engine.Generate(cfg)

	path, err := engine.Save(*outDir, *name, snap)
	if err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done: %s\n", path)
}
