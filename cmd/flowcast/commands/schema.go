package commands

import (
	"reflect"
	"time"

	"flowcast/internal/backlog"
	"flowcast/internal/forecast"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the backlog snapshot format",
	// No config or log files needed.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := SnapshotSchema()
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), schema)
	},
}

// SnapshotSchema infers the JSON Schema of a backlog snapshot.
func SnapshotSchema() (*jsonschema.Schema, error) {
	forecasts := &jsonschema.Schema{
		Type:        "object",
		Description: "Forecast written back by flowcast; ignored on input",
	}
	timestamps := &jsonschema.Schema{Type: "string", Format: "date-time"}

	return jsonschema.For[backlog.Snapshot](&jsonschema.ForOptions{
		TypeSchemas: map[reflect.Type]*jsonschema.Schema{
			reflect.TypeFor[time.Time]():             timestamps,
			reflect.TypeFor[forecast.WhenForecast](): forecasts,
		},
	})
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
