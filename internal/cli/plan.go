package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackbump/pkg/config"
	"github.com/matzehuels/stackbump/pkg/version"
)

type planOptions struct {
	resolveFlags
	json  bool
	watch bool
}

// planCommand resolves and prints the pending version changes.
func (c *CLI) planCommand() *cobra.Command {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the versions the pending changesets would produce",
		Long: `Plan resolves the pending changesets against the workspace and prints every
package that would change: direct bumps, dependents reached by propagation
and the dependency specifiers that would be rewritten. Nothing is written.`,
		Example: `  stackbump plan
  stackbump plan --packages @acme/core --bump minor
  stackbump plan --json > plan.json
  stackbump plan --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run := func(context.Context) error {
				r, err := c.resolve(cmd, &opts.resolveFlags)
				if err != nil {
					return err
				}
				return printPlan(r.cfg, r.res, opts.json)
			}
			if !opts.watch {
				return run(cmd.Context())
			}

			cfg, err := c.loadConfig(cmd, &opts.resolveFlags)
			if err != nil {
				return err
			}
			return c.watch(cmd.Context(), cfg, run)
		},
	}
	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the resolution as JSON")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-plan whenever manifests, changesets or the config change")
	return cmd
}

func printPlan(cfg config.Config, res *version.VersionResolution, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResolution(res)
	cyclesNote(cfg, res)
	return nil
}

// cyclesNote is appended to summaries when the workspace has cycles but the
// config tolerates them.
func cyclesNote(cfg config.Config, res *version.VersionResolution) {
	if res.HasCycles() && !cfg.Dependencies.FailOnCircular {
		printDetail("set fail_on_circular = true under [dependencies] to reject cyclic workspaces")
	}
}
