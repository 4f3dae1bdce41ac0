package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specmark/specmark/internal/errors"
	"github.com/specmark/specmark/internal/identifier"
	"github.com/specmark/specmark/internal/registry"
)

func newResolveCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "resolve <token>",
		Short: "Resolve an identifier token against the system registry",
		Long: `Decompose an identifier token into its system, kind, and slug parts using
longest-prefix matching against the registered system hierarchy. With --kind,
composite identifiers scoped to a parent document are recognized.`,
		Example: `  specmark resolve spec-core-api-req-login --kind req
  specmark resolve spec-payments-adr-0005`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			reg, err := registry.Load(cfg.RegistryPath)
			if err != nil {
				return errors.RegistryNotFound(cfg.RegistryPath)
			}
			res := identifier.NewResolver(cfg.Scheme, reg.Prefixes())

			var parsed *identifier.Parsed
			if kind != "" {
				parsed, err = res.Resolve(token, kind)
			} else {
				parsed, err = res.ResolveAny(token)
			}
			if err != nil {
				return errors.InvalidResolveToken(token, cfg.Scheme)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Token:  %s\n", token)
			fmt.Fprintf(out, "System: %s\n", parsed.System)
			fmt.Fprintf(out, "Kind:   %s\n", parsed.Kind)
			fmt.Fprintf(out, "Slug:   %s\n", parsed.Slug)
			if parsed.IsComposite() {
				fmt.Fprintf(out, "Parent: %s\n", parsed.ParentID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Identifier kind to resolve against (e.g. req, adr)")
	return cmd
}
