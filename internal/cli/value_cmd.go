package cli

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	ciskema "github.com/reoring/ciskema"
	"github.com/reoring/ciskema/internal/ctxlog"
	"github.com/reoring/ciskema/source"
)

func newValueCmd(app *App) *cobra.Command {
	var specified bool

	cmd := &cobra.Command{
		Use:   "value FILE [PATH]",
		Short: "Print the normalized value of a configuration or one of its keys",
		Long: "PATH is a dot separated key path such as jobs.rspec.script. " +
			"A hidden job is written with its leading dot, e.g. jobs..template.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := app.read(args[0])
			if err != nil {
				return err
			}
			src, err := source.ForPath(args[0], data, ciskema.DefaultParseOpt())
			if err != nil {
				return err
			}
			res, err := ciskema.ParseFrom(ctx, app.Registry, src)
			if err != nil {
				return fmt.Errorf("decoding %s: %w", args[0], err)
			}
			var path []string
			if len(args) == 2 {
				path = SplitPath(args[1])
			}
			ctxlog.FromContext(ctx).Debug("Resolving value.", "file", args[0], "path", strings.Join(path, "/"))

			if specified {
				_, err = fmt.Fprintln(app.Out, res.Specified(path...))
				return err
			}
			v, ok := res.SemanticValue(path...)
			if !ok {
				return fmt.Errorf("no value at %q", strings.Join(path, "."))
			}
			b, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding value: %w", err)
			}
			_, err = fmt.Fprintln(app.Out, string(b))
			return err
		},
	}

	cmd.Flags().BoolVar(&specified, "specified", false, "Print whether the value was given in the file instead of the value")
	return cmd
}

// SplitPath splits a dotted key path. An empty segment glues a dot onto the
// following key, so "jobs..template" addresses the ".template" job.
func SplitPath(p string) []string {
	if p == "" || p == "." {
		return nil
	}
	parts := strings.Split(p, ".")
	out := make([]string, 0, len(parts))
	for i := 0; i < len(parts); i++ {
		seg := parts[i]
		if seg == "" && i+1 < len(parts) {
			if i == 0 && len(out) == 0 {
				continue
			}
			i++
			seg = "." + parts[i]
		}
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
