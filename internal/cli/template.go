package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/specmark/specmark/internal/errors"
	"github.com/specmark/specmark/internal/report"
	"github.com/specmark/specmark/internal/template"
)

func newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Inspect and check artifact templates",
	}
	cmd.AddCommand(newTemplateCheckCmd())
	return cmd
}

func newTemplateCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <template.md>",
		Short: "Parse a template and report its block catalog",
		Long: `Parse a single template file, report any structural problems, and print
the declared block catalog with nesting, cardinality, and attributes.`,
		Example: `  specmark template check artifacts/design/template.md`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return errors.TemplateFileNotFound(path)
			}

			tpl := template.New(path)
			if err := tpl.Load(); err != nil {
				return errors.WrapWithMessage(err, errors.Runtime, "loading template")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Template: %s\n", path)
			fmt.Fprintf(out, "Kind:     %s\n", tpl.Kind)
			if tpl.Version != (template.Version{}) {
				fmt.Fprintf(out, "Version:  %s\n", tpl.Version)
			}
			fmt.Fprintf(out, "Policy:   %s\n", tpl.Policy)
			fmt.Fprintln(out)

			for _, b := range tpl.Blocks {
				depth := len(template.Ancestors(tpl.Blocks, b))
				indent := strings.Repeat("  ", depth)
				card := string(b.Repeat)
				req := "required"
				if !b.Required {
					req = "optional"
				}
				fmt.Fprintf(out, "%s%s:%s (%s, %s) lines %d-%d\n",
					indent, b.Kind, b.Name, req, card, b.StartLine, b.EndLine)
			}

			if len(tpl.Problems) > 0 {
				fmt.Fprintln(out)
				cfg, err := loadConfig(cmd)
				noColor := err == nil && cfg.NoColor
				renderer := &report.Renderer{NoColor: noColor}
				rep := report.New()
				rep.Add(tpl.Problems...)
				rep.Finalize()
				renderer.Render(out, rep)
				return errors.NewRuntimeError(
					fmt.Sprintf("template has %d structural problem(s)", len(tpl.Problems)),
					"Fix the marker structure and rerun the check",
				)
			}
			return nil
		},
	}
}
