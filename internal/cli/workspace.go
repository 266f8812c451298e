package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackbump/pkg/cache"
	"github.com/matzehuels/stackbump/pkg/changeset"
	"github.com/matzehuels/stackbump/pkg/config"
	"github.com/matzehuels/stackbump/pkg/dag"
	"github.com/matzehuels/stackbump/pkg/deps"
	"github.com/matzehuels/stackbump/pkg/errors"
	"github.com/matzehuels/stackbump/pkg/semver"
	"github.com/matzehuels/stackbump/pkg/version"
)

// resolveFlags are shared by every command that runs a resolution.
type resolveFlags struct {
	packages  []string
	bump      string
	strategy  string
	maxDepth  int
	noCache   bool
	propagate bool
}

func (f *resolveFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringSliceVarP(&f.packages, "packages", "p", nil, "changed packages (overrides changeset files)")
	fl.StringVarP(&f.bump, "bump", "b", "patch", "bump for --packages: major, minor, patch, none")
	fl.StringVar(&f.strategy, "strategy", "", "versioning strategy: independent or unified")
	fl.IntVar(&f.maxDepth, "max-depth", -1, "propagation depth limit (0 = unlimited)")
	fl.BoolVar(&f.noCache, "no-cache", false, "bypass the resolution cache")
	fl.BoolVar(&f.propagate, "propagate", true, "propagate bumps to dependents")
}

// loadConfig reads the config file and applies flag overrides.
func (c *CLI) loadConfig(cmd *cobra.Command, f *resolveFlags) (config.Config, error) {
	path := c.configPath
	if path == "" {
		path = filepath.Join(c.dir, config.FileName)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if f == nil {
		return cfg, nil
	}

	if f.strategy != "" {
		if cfg.Strategy, err = config.ParseStrategy(f.strategy); err != nil {
			return cfg, err
		}
	}
	if f.maxDepth >= 0 {
		cfg.Dependencies.MaxPropagationDepth = f.maxDepth
	}
	if cmd.Flags().Changed("propagate") {
		cfg.Dependencies.PropagateUpdates = f.propagate
	}
	if f.noCache {
		cfg.Cache.Backend = "none"
	}
	return cfg, cfg.Validate()
}

// loadChangeset builds the changeset from --packages or, without it, from
// the changeset directory.
func (c *CLI) loadChangeset(f *resolveFlags, cfg config.Config) (changeset.Changeset, error) {
	if len(f.packages) > 0 {
		bump, err := semver.ParseBump(f.bump)
		if err != nil {
			return changeset.Changeset{}, err
		}
		cs := changeset.New(bump, f.packages...)
		return cs, cs.Validate()
	}

	dir := cfg.ChangesetDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(c.dir, dir)
	}
	files, err := changeset.LoadDir(dir)
	if err != nil {
		return changeset.Changeset{}, err
	}
	if len(files) == 0 {
		return changeset.Changeset{}, errors.New(errors.ErrCodeInvalidChangeset,
			"no changesets in %s; pass --packages or add a changeset file", dir)
	}
	cs := changeset.Merge(files...)
	return cs, cs.Validate()
}

// newResolver wires discovery and the configured cache into a resolver.
// The returned cleanup closes the cache.
func (c *CLI) newResolver(ctx context.Context, cfg config.Config) (*version.Resolver, func(), error) {
	finder := deps.NewFinder(c.dir)
	finder.Patterns = cfg.Workspaces

	r, err := version.NewResolver(finder, cfg, loggerFromContext(ctx))
	if err != nil {
		return nil, nil, err
	}
	store, ttl, err := cache.Open(cfg.Cache, "")
	if err != nil {
		return nil, nil, err
	}
	r.Cache, r.CacheTTL = store, ttl
	return r, func() { _ = store.Close() }, nil
}

// resolved is the outcome of one resolution together with its inputs.
type resolved struct {
	cfg config.Config
	cs  changeset.Changeset
	res *version.VersionResolution
}

// resolve runs one resolution for cmd with a spinner on stderr.
func (c *CLI) resolve(cmd *cobra.Command, f *resolveFlags) (*resolved, error) {
	ctx := cmd.Context()
	cfg, err := c.loadConfig(cmd, f)
	if err != nil {
		return nil, err
	}
	cs, err := c.loadChangeset(f, cfg)
	if err != nil {
		return nil, err
	}
	r, closeCache, err := c.newResolver(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeCache()

	prog := newProgress(loggerFromContext(ctx))
	spin := newSpinner(ctx, "Resolving versions...")
	spin.Start()
	res, err := r.Resolve(ctx, cs)
	spin.Stop()
	if err != nil {
		return nil, err
	}
	prog.done("Resolved " + pluralize(len(res.Updates), "update"))
	return &resolved{cfg: cfg, cs: cs, res: res}, nil
}

// buildGraph discovers the workspace and builds its dependency graph.
func (c *CLI) buildGraph(ctx context.Context, cfg config.Config) (*dag.Graph, error) {
	finder := deps.NewFinder(c.dir)
	finder.Patterns = cfg.Workspaces
	infos, err := finder.Discover(ctx)
	if err != nil {
		return nil, err
	}
	return dag.NewBuilder(cfg.Dependencies, loggerFromContext(ctx)).Build(infos)
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
