package commands

import (
	"fmt"
	"os"

	"flowcast/internal/visuals"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	forecastTeams  []string
	forecastSave   bool
	forecastReport string
	forecastOpen   bool
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast all features of the backlog snapshot",
	Long: `Groups the remaining work of every feature by team, simulates each team concurrently
and writes the new forecasts back onto the features.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, name := openStore()
		snap, err := store.Get(name)
		if err != nil {
			return err
		}

		svc := newService()
		features := snap.FeaturesForTeams(forecastTeams)
		res, runErr := svc.ForecastFeatures(cmd.Context(), snap, features)
		if runErr != nil {
			log.Error().Err(runErr).Msg("Some team simulations failed")
		}

		today := svc.Today()
		if forecastSave {
			snap.UpdatedAt = today
			if err := store.Save(name); err != nil {
				return err
			}
			if err := store.Archive(name, features, today); err != nil {
				return err
			}
		}

		if forecastReport != "" {
			report := visuals.GenerateReport(snap, visuals.ReportOptions{
				Today:          today,
				Charts:         cfg.EnableMermaidCharts || forecastOpen,
				ThroughputDays: cfg.ThroughputDays,
			})
			if err := os.WriteFile(forecastReport, []byte(report), 0644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			log.Info().Str("path", forecastReport).Msg("Report written")

			if forecastOpen {
				// stdout carries the JSON result.
				browser.Stdout = os.Stderr
				if err := browser.OpenFile(forecastReport); err != nil {
					log.Warn().Err(err).Msg("Failed to open report")
				}
			}
		}

		if err := writeJSON(cmd.OutOrStdout(), map[string]any{"run": res, "features": features}); err != nil {
			return err
		}
		return runErr
	},
}

func init() {
	forecastCmd.Flags().StringSliceVarP(&forecastTeams, "team", "t", nil, "only forecast features these teams contribute to")
	forecastCmd.Flags().BoolVar(&forecastSave, "save", false, "persist forecasts into the snapshot and append them to its history")
	forecastCmd.Flags().StringVar(&forecastReport, "report", "", "write a Markdown report to this file")
	forecastCmd.Flags().BoolVar(&forecastOpen, "open", false, "open the report in the default viewer")
	rootCmd.AddCommand(forecastCmd)
}
