package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackbump/pkg/version"
)

// snapshotFlags select and fill the snapshot template.
type snapshotFlags struct {
	format string
	branch string
	commit string
}

func (f *snapshotFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.format, "format", "", "snapshot template (default from config, e.g. {version}-{branch}.{commit})")
	fl.StringVar(&f.branch, "branch", "", "branch for {branch} (default: the changeset's branch)")
	fl.StringVar(&f.commit, "commit", "", "commit hash for {commit}")
}

// toSnapshot rewrites r's resolution onto snapshot versions.
func (f *snapshotFlags) toSnapshot(r *resolved, now time.Time) (*version.VersionResolution, error) {
	format := f.format
	if format == "" {
		format = r.cfg.Snapshot.Format
	}
	gen, err := version.NewSnapshotGenerator(format)
	if err != nil {
		return nil, err
	}
	branch := f.branch
	if branch == "" {
		branch = r.cs.Branch
	}
	return version.ApplySnapshot(r.res, gen, version.SnapshotContext{
		Branch:    branch,
		Commit:    f.commit,
		Timestamp: now,
	})
}

// snapshotCommand prints the snapshot versions of a resolution.
func (c *CLI) snapshotCommand() *cobra.Command {
	var (
		rf     resolveFlags
		sf     snapshotFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Show the snapshot versions for an ephemeral build",
		Long: `Snapshot resolves the pending changesets and replaces every next version with
a pre-release built from the snapshot template. Dependents are pinned to
the exact snapshot versions. Use "apply --snapshot" to write them.`,
		Example: `  stackbump snapshot --branch feat/login --commit $(git rev-parse HEAD)
  stackbump snapshot --format '{version}-pr.{timestamp}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.resolve(cmd, &rf)
			if err != nil {
				return err
			}
			snap, err := sf.toSnapshot(r, time.Now())
			if err != nil {
				return err
			}
			return printPlan(r.cfg, snap, asJSON)
		},
	}
	rf.register(cmd)
	sf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the resolution as JSON")
	return cmd
}
