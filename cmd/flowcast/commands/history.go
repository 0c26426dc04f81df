package commands

import (
	"flowcast/internal/backlog"

	"github.com/spf13/cobra"
)

var (
	historyFeature string
	historyLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the feature forecasts archived by saved backlog runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, name := openStore()
		records, err := store.History(name)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), backlog.FilterHistory(records, historyFeature, historyLimit))
	},
}

func init() {
	historyCmd.Flags().StringVarP(&historyFeature, "feature", "f", "", "only records of this feature")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "at most this many of the latest records")
	rootCmd.AddCommand(historyCmd)
}
