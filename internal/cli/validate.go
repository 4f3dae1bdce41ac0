package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/specmark/specmark/internal/config"
	"github.com/specmark/specmark/internal/errors"
	"github.com/specmark/specmark/internal/report"
	"github.com/specmark/specmark/internal/runner"
)

func newValidateCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [paths...]",
		Short: "Validate artifacts against templates and constraints",
		Long: `Validate one or more artifact files or directories. Directories are
walked recursively for Markdown files; template files are skipped.

Each artifact is checked for marker structure, block content, cardinality,
nesting, identifier constraints, and cross-artifact reference coverage.`,
		Example: `  specmark validate ./docs
  specmark validate docs/design/auth.md docs/ops/
  SPECMARK_CONSTRAINTS=rules.yaml specmark validate ./docs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.MissingValidatePaths()
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if strict {
				cfg.Strict = true
			}
			if _, err := os.Stat(cfg.ArtifactsDir); err != nil {
				return errors.DirectoryNotFound(cfg.ArtifactsDir)
			}
			if cfg.ConstraintsPath != "" {
				if _, err := os.Stat(cfg.ConstraintsPath); err != nil {
					return errors.ConstraintsNotFound(cfg.ConstraintsPath)
				}
			}

			ctx := runner.NewContext(cfg)

			sp := startSpinner(cfg, "Validating...")
			rep := ctx.Run(args)
			stopSpinner(sp)

			if cfg.Strict && len(rep.Warnings) > 0 {
				rep.Add(rep.Warnings...)
				rep.Warnings = nil
				rep.Finalize()
			}

			renderer := &report.Renderer{NoColor: cfg.NoColor}
			renderer.Render(cmd.OutOrStdout(), rep)

			if rep.Status == report.StatusFail {
				return errors.NewRuntimeError(
					fmt.Sprintf("validation failed with %d error(s)", len(rep.Errors)),
					"Fix the reported problems and rerun the same command",
				)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
	return cmd
}

// loadConfig resolves the --config flag and loads the layered configuration.
// A missing file is an error only when --config was set explicitly; the
// default path is allowed to be absent.
func loadConfig(cmd *cobra.Command) (*config.Configuration, error) {
	path, _ := cmd.Flags().GetString("config")
	if cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.ConfigFileNotFound(path)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.ConfigParseError(path, err)
	}
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		cfg.NoColor = true
	}
	return cfg, nil
}

// startSpinner starts a progress spinner when configured and attached to a
// terminal. Returns nil otherwise.
func startSpinner(cfg *config.Configuration, msg string) *spinner.Spinner {
	if !cfg.ShowProgress || cfg.NoColor || !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	sp.Suffix = " " + msg
	sp.Start()
	return sp
}

func stopSpinner(sp *spinner.Spinner) {
	if sp != nil {
		sp.Stop()
	}
}
