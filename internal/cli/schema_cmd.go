package cli

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newSchemaCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the pipeline configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := json.MarshalIndent(app.Registry.JSONSchema(), "", "  ")
			if err != nil {
				return fmt.Errorf("encoding schema: %w", err)
			}
			_, err = fmt.Fprintln(app.Out, string(b))
			return err
		},
	}
}
