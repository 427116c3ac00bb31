package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	ciskema "github.com/reoring/ciskema"
	"github.com/reoring/ciskema/internal/ctxlog"
	"github.com/reoring/ciskema/source"
)

// FileReport is the lint outcome of one document.
type FileReport struct {
	File   string        `json:"file"`
	Format string        `json:"format,omitempty"`
	Valid  bool          `json:"valid"`
	Issues []IssueReport `json:"issues"`
}

// IssueReport is the JSON form of one issue.
type IssueReport struct {
	Key      string `json:"key"`
	Path     string `json:"path"`
	Code     string `json:"code"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Text     string `json:"text"`
}

type lintOptions struct {
	format       *enumValue
	color        *enumValue
	maxDepth     int
	maxBytes     int64
	allowDupKeys bool
}

func newLintCmd(app *App) *cobra.Command {
	opts := lintOptions{
		format: newEnumValue(app.env(EnvFormat, "text"), "text", "json"),
		color:  newEnumValue(app.env(EnvColor, "auto"), "auto", "always", "never"),
	}

	cmd := &cobra.Command{
		Use:   "lint FILE...",
		Short: "Validate pipeline configuration files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd.Context(), app, opts, args)
		},
	}

	cmd.Flags().Var(opts.format, "format", "Output format: "+opts.format.choices()+" (env "+EnvFormat+")")
	cmd.Flags().Var(opts.color, "color", "Colorize text output: "+opts.color.choices()+" (env "+EnvColor+")")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", ciskema.DefaultParseOpt().MaxDepth, "Maximum nesting depth (0 disables the limit)")
	cmd.Flags().Int64Var(&opts.maxBytes, "max-bytes", 0, "Maximum document size in bytes (0 disables the limit)")
	cmd.Flags().BoolVar(&opts.allowDupKeys, "allow-duplicate-keys", false, "Warn about duplicate keys instead of failing")

	return cmd
}

func runLint(ctx context.Context, app *App, opts lintOptions, files []string) error {
	logger := ctxlog.FromContext(ctx)
	popt := ciskema.DefaultParseOpt()
	popt.MaxDepth = opts.maxDepth
	popt.MaxBytes = opts.maxBytes
	if opts.allowDupKeys {
		popt.Strictness.OnDuplicateKey = ciskema.Warn
		popt.Warn = func(it ciskema.Issue) {
			logger.Warn("Duplicate key.", "path", it.Path, "detail", it.Message)
		}
	}

	reports := make([]FileReport, 0, len(files))
	for _, name := range files {
		rep, err := lintFile(ctx, app, name, popt)
		if err != nil {
			return err
		}
		logger.Info("Linted file.", "file", name, "valid", rep.Valid, "issues", len(rep.Issues))
		reports = append(reports, rep)
	}

	var err error
	if opts.format.String() == "json" {
		err = writeJSON(app.Out, reports)
	} else {
		colored := opts.color.String() == "always" || (opts.color.String() == "auto" && app.IsTerminal != nil && app.IsTerminal())
		err = writeText(app.Out, reports, newStyles(colored))
	}
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	for _, r := range reports {
		if !r.Valid {
			return ErrInvalid
		}
	}
	return nil
}

func lintFile(ctx context.Context, app *App, name string, popt ciskema.ParseOpt) (FileReport, error) {
	data, err := app.read(name)
	if err != nil {
		return FileReport{}, err
	}
	src, err := source.ForPath(name, data, popt)
	if err != nil {
		return FileReport{}, err
	}
	rep := FileReport{File: name, Format: src.Format()}
	res, err := ciskema.ParseFrom(ctx, app.Registry, src)
	if err != nil {
		iss, ok := ciskema.AsIssues(err)
		if !ok {
			return FileReport{}, fmt.Errorf("linting %s: %w", name, err)
		}
		rep.Issues = toReports(iss)
		return rep, nil
	}
	rep.Valid = res.Valid()
	rep.Issues = toReports(res.Issues())
	return rep, nil
}

func toReports(iss ciskema.Issues) []IssueReport {
	out := make([]IssueReport, 0, len(iss))
	for _, it := range iss {
		out = append(out, IssueReport{
			Key:      it.Key,
			Path:     it.Path,
			Code:     it.Code,
			Category: it.Category().String(),
			Message:  it.Message,
			Text:     it.Format(),
		})
	}
	return out
}

func writeJSON(w io.Writer, reports []FileReport) error {
	b, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func writeText(w io.Writer, reports []FileReport, st styles) error {
	var errs []error
	for _, r := range reports {
		if r.Valid {
			_, err := fmt.Fprintf(w, "%s: %s\n", st.render(st.file, r.File), st.render(st.ok, "valid"))
			errs = append(errs, err)
			continue
		}
		_, err := fmt.Fprintf(w, "%s: %s\n", st.render(st.file, r.File), st.render(st.bad, fmt.Sprintf("%d issue(s)", len(r.Issues))))
		errs = append(errs, err)
		for _, it := range r.Issues {
			tag := st.render(st.dim, "["+it.Category+" "+it.Path+"]")
			if it.Category == ciskema.CategoryParse.String() {
				tag = st.render(st.warn, "["+it.Category+" "+it.Path+"]")
			}
			_, err := fmt.Fprintf(w, "  %s %s\n", it.Text, tag)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
