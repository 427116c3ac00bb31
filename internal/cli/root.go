// Package cli implements the ciskema command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	ciskema "github.com/reoring/ciskema"
	"github.com/reoring/ciskema/ci"
	"github.com/reoring/ciskema/i18n"
	"github.com/reoring/ciskema/internal/ctxlog"
)

// ErrInvalid is returned when at least one linted document has issues. The
// report has already been written, so callers only set the exit status.
var ErrInvalid = errors.New("configuration is invalid")

// Environment variables consulted when the matching flag is not given.
const (
	EnvFormat   = "CISKEMA_FORMAT"
	EnvLang     = "CISKEMA_LANG"
	EnvLogLevel = "CISKEMA_LOG_LEVEL"
	EnvColor    = "CISKEMA_COLOR"
)

// App holds the collaborators used by the commands.
type App struct {
	Registry *ciskema.Registry
	Out      io.Writer
	Err      io.Writer
	ReadFile func(name string) ([]byte, error)
	Getenv   func(key string) string
	// IsTerminal reports whether Out is an interactive terminal.
	IsTerminal func() bool
}

// DefaultApp wires the process environment.
func DefaultApp() *App {
	return &App{
		Registry: ci.Registry(),
		Out:      os.Stdout,
		Err:      os.Stderr,
		ReadFile: os.ReadFile,
		Getenv:   os.Getenv,
		IsTerminal: func() bool {
			fd := os.Stdout.Fd()
			return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		},
	}
}

func (a *App) env(key, fallback string) string {
	if a.Getenv != nil {
		if v := strings.TrimSpace(a.Getenv(key)); v != "" {
			return v
		}
	}
	return fallback
}

// NewRootCmd creates the top-level "ciskema" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	logLevel := newEnumValue(app.env(EnvLogLevel, "warn"), "debug", "info", "warn", "error")
	lang := newEnumValue(app.env(EnvLang, "en"), "en", "ja")

	root := &cobra.Command{
		Use:           "ciskema",
		Short:         "Validate CI pipeline configuration files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(app.Err, logLevel.String()).With("run_id", uuid.NewString())
			i18n.SetLanguage(lang.String())
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(ctxlog.WithLogger(ctx, logger))
			logger.Debug("Command started.", "command", cmd.Name(), "args", len(args), "lang", lang.String())
			return nil
		},
	}
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	root.PersistentFlags().Var(logLevel, "log-level", "Log level: "+logLevel.choices()+" (env "+EnvLogLevel+")")
	root.PersistentFlags().Var(lang, "lang", "Message language: "+lang.choices()+" (env "+EnvLang+")")

	root.AddCommand(
		newLintCmd(app),
		newValueCmd(app),
		newSchemaCmd(app),
	)
	return root
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func (a *App) read(name string) ([]byte, error) {
	data, err := a.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}
