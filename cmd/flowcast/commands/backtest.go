package commands

import (
	"flowcast/internal/forecaster"

	"github.com/spf13/cobra"
)

var (
	backtestStart  string
	backtestEnd    string
	backtestWindow int
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Check a How Many forecast against what a team actually delivered in a past period",
	RunE: func(cmd *cobra.Command, args []string) error {
		team, err := loadTeam(teamID)
		if err != nil {
			return err
		}
		start, err := parseDate(backtestStart)
		if err != nil {
			return err
		}
		end, err := parseDate(backtestEnd)
		if err != nil {
			return err
		}

		res, err := newService().Backtest(team, start, end, backtestWindow)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	backtestCmd.Flags().StringVarP(&teamID, "team", "t", "", "team ID in the snapshot")
	backtestCmd.Flags().StringVar(&backtestStart, "start", "", "start of the period (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&backtestEnd, "end", "", "end of the period, exclusive (YYYY-MM-DD)")
	backtestCmd.Flags().IntVar(&backtestWindow, "window", forecaster.DefaultThroughputDays, "days of history before start used as throughput")
	for _, name := range []string{"team", "start", "end"} {
		_ = backtestCmd.MarkFlagRequired(name)
	}
	rootCmd.AddCommand(backtestCmd)
}
