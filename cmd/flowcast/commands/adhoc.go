package commands

import (
	"fmt"
	"time"

	"flowcast/internal/backlog"

	"github.com/spf13/cobra"
)

var (
	teamID     string
	remaining  int
	days       int
	targetDate string
)

var whenCmd = &cobra.Command{
	Use:   "when",
	Short: "Forecast when a number of remaining items will be done by one team",
	RunE: func(cmd *cobra.Command, args []string) error {
		team, err := loadTeam(teamID)
		if err != nil {
			return err
		}
		fc, err := newService().When(cmd.Context(), team, remaining)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), fc)
	},
}

var howManyCmd = &cobra.Command{
	Use:   "how-many",
	Short: "Forecast how many items one team completes within a number of days",
	RunE: func(cmd *cobra.Command, args []string) error {
		team, err := loadTeam(teamID)
		if err != nil {
			return err
		}

		svc := newService()
		horizon := days
		if targetDate != "" {
			t, err := parseDate(targetDate)
			if err != nil {
				return err
			}
			horizon = backlog.DaysUntil(t, svc.Today())
		}
		if horizon <= 0 {
			return fmt.Errorf("--days must be > 0 (or --target-date must be in the future)")
		}

		fc, err := svc.HowManyForTeam(team, horizon)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), fc)
	},
}

var manualCmd = &cobra.Command{
	Use:   "manual",
	Short: "Forecast remaining items and the likelihood of meeting a target date",
	RunE: func(cmd *cobra.Command, args []string) error {
		team, err := loadTeam(teamID)
		if err != nil {
			return err
		}

		var target *time.Time
		if targetDate != "" {
			t, err := parseDate(targetDate)
			if err != nil {
				return err
			}
			target = &t
		}

		res, err := newService().Manual(cmd.Context(), team, remaining, target)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	for _, c := range []*cobra.Command{whenCmd, howManyCmd, manualCmd} {
		c.Flags().StringVarP(&teamID, "team", "t", "", "team ID in the snapshot")
		_ = c.MarkFlagRequired("team")
		rootCmd.AddCommand(c)
	}

	whenCmd.Flags().IntVarP(&remaining, "remaining", "n", 0, "remaining items")
	manualCmd.Flags().IntVarP(&remaining, "remaining", "n", 0, "remaining items")
	manualCmd.Flags().StringVar(&targetDate, "target-date", "", "target date (YYYY-MM-DD)")
	howManyCmd.Flags().IntVarP(&days, "days", "d", 0, "forecast horizon in days")
	howManyCmd.Flags().StringVar(&targetDate, "target-date", "", "forecast until this date instead of --days (YYYY-MM-DD)")
}
