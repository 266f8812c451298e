package cli

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackbump/pkg/apply"
)

// applyCommand resolves and writes the new versions into the manifests.
func (c *CLI) applyCommand() *cobra.Command {
	var (
		rf          resolveFlags
		sf          snapshotFlags
		dryRun      bool
		snapshot    bool
		keepBackups bool
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Write the resolved versions into package.json files",
		Long: `Apply resolves the pending changesets and rewrites the version field and the
affected dependency specifiers of every changed package.json. Only those
string values change; formatting is preserved.

Every file is backed up before the first write. If any write fails, or the
command is interrupted, all files written so far are restored.`,
		Example: `  stackbump apply --dry-run
  stackbump apply
  stackbump apply --snapshot --branch "$BRANCH" --commit "$SHA"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			r, err := c.resolve(cmd, &rf)
			if err != nil {
				return err
			}
			res := r.res
			if snapshot {
				if res, err = sf.toSnapshot(r, time.Now()); err != nil {
					return err
				}
			}

			cfg := r.cfg.Apply
			if keepBackups {
				cfg.KeepBackups = true
			}
			result, err := apply.NewEngine(nil, cfg, logger).Apply(ctx, res, dryRun)

			if asJSON {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				if jerr := enc.Encode(result); jerr != nil && err == nil {
					err = jerr
				}
				return err
			}
			if dryRun {
				printResolution(res)
				printNewline()
			}
			printApplyResult(result)
			return err
		},
	}
	rf.register(cmd)
	sf.register(cmd)
	fl := cmd.Flags()
	fl.BoolVarP(&dryRun, "dry-run", "n", false, "show what would change without writing")
	fl.BoolVar(&snapshot, "snapshot", false, "write snapshot versions instead of releases")
	fl.BoolVar(&keepBackups, "keep-backups", false, "keep backup files after a successful run")
	fl.BoolVar(&asJSON, "json", false, "print the apply summary as JSON")
	return cmd
}
