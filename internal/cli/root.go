// Package cli provides the Cobra-based command surface for specmark: full
// validation runs, template inspection, identifier resolution, and version
// output.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/specmark/specmark/internal/errors"
)

var rootCmd = &cobra.Command{
	Use:   "specmark",
	Short: "marker-based specification validation",
	Long: `specmark validates marker-structured specification documents.

Templates declare the block structure an artifact kind must follow; artifacts
are checked against their template, against externally declared identifier
constraints, and against cross-artifact reference coverage rules.`,
	Example: `  # Validate every artifact under ./docs
  specmark validate ./docs

  # Inspect a template's block catalog
  specmark template check artifacts/design/template.md

  # Resolve an identifier token against the registry
  specmark resolve spec-core-api-req-login --kind req`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints any resulting error with its
// category and remediation steps.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		if !errors.IsCLIError(err) {
			err = errors.Wrap(err, errors.Runtime)
		}
		errors.PrintError(errors.AsCLIError(err))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", ".specmark/config.json", "Path to config file")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newTemplateCmd())
	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newVersionCmd())
}
