package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"flowcast/internal/backlog"
	"flowcast/internal/config"
	"flowcast/internal/forecaster"
	"flowcast/internal/logging"
	"flowcast/internal/mcp"
	"flowcast/internal/random"
	"flowcast/internal/simulation"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose      bool
	snapshotPath string
	trials       int
	workers      int
	seed         int64
	cfg          *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "flowcast",
	Short: "flowcast is a Monte-Carlo delivery forecasting engine with an MCP server",
	Long: `Forecasts when backlog features will be done and how many items a team delivers,
by bootstrap resampling of each team's daily throughput under its feature WIP limit.

Without a subcommand flowcast serves its forecasting tools over MCP (stdio).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(verbose); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		// Flags win over the environment.
		if cmd.Flags().Changed("trials") {
			cfg.Trials = trials
		}
		if cmd.Flags().Changed("workers") {
			cfg.Workers = workers
		}
		if cmd.Flags().Changed("seed") {
			s := uint64(seed)
			cfg.Seed = &s
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Int("trials", cfg.Trials).
			Msg("flowcast starting")
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		store, name := openStore()
		server := mcp.NewServer(store, newService(), cfg.EnableMermaidCharts, Version)
		server.SetDefaultSnapshot(name)
		return server.Serve(cmd.Context())
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&snapshotPath, "snapshot", "s", "", "backlog snapshot file (default <DATA_PATH>/cache/backlog.json)")
	rootCmd.PersistentFlags().IntVar(&trials, "trials", simulation.DefaultTrials, "trials per simulation (overrides FLOWCAST_TRIALS)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "team groups simulated in parallel (overrides FLOWCAST_WORKERS)")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "fixed random seed for reproducible runs (overrides FLOWCAST_SEED)")
}

func newService() *forecaster.Service {
	engine := simulation.NewEngine(random.New(cfg.Seed), cfg.Trials)
	return forecaster.NewService(engine, cfg.Workers, cfg.ThroughputDays)
}

// openStore returns a store for the snapshot file and the snapshot's name in it.
func openStore() (*backlog.Store, string) {
	path := snapshotPath
	if path == "" {
		path = filepath.Join(cfg.CacheDir, mcp.DefaultSnapshot+".json")
	}
	return backlog.NewStore(filepath.Dir(path)), strings.TrimSuffix(filepath.Base(path), ".json")
}

func loadTeam(teamID string) (backlog.Team, error) {
	store, name := openStore()
	snap, err := store.Get(name)
	if err != nil {
		return backlog.Team{}, err
	}
	return forecaster.FindTeam(snap, teamID)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
