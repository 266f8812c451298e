package version

import (
	"io"
	"maps"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackbump/pkg/changeset"
	"github.com/matzehuels/stackbump/pkg/config"
	"github.com/matzehuels/stackbump/pkg/dag"
	"github.com/matzehuels/stackbump/pkg/deps"
	"github.com/matzehuels/stackbump/pkg/errors"
	"github.com/matzehuels/stackbump/pkg/semver"
)

// Packages maps package names to their current state.
type Packages map[string]*dag.PackageNode

// NewPackages parses discovered records into a package map. Duplicate names
// and unparseable versions fail with GRAPH_CONSTRUCTION_FAILED.
func NewPackages(infos []deps.PackageInfo) (Packages, error) {
	pkgs := make(Packages, len(infos))
	for _, info := range infos {
		n, err := dag.NewPackageNode(info)
		if err != nil {
			return nil, err
		}
		if _, dup := pkgs[n.Name]; dup {
			return nil, errors.New(errors.ErrCodeGraphConstruction, "duplicate package %q", n.Name)
		}
		pkgs[n.Name] = &n
	}
	return pkgs, nil
}

// FromGraph returns the package map backing g.
func FromGraph(g *dag.Graph) Packages {
	pkgs := make(Packages, g.NodeCount())
	for _, n := range g.Nodes() {
		pkgs[n.Name] = n
	}
	return pkgs
}

// Names returns the package names in sorted order.
func (p Packages) Names() []string { return slices.Sorted(maps.Keys(p)) }

// Engine computes the direct updates requested by a changeset.
type Engine struct {
	Strategy config.Strategy
	Logger   *log.Logger
}

// NewEngine creates an engine for the given strategy. A nil logger discards
// output.
func NewEngine(strategy config.Strategy, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Engine{Strategy: strategy, Logger: logger}
}

// Resolve applies the changeset's bump to the packages it names.
//
// Under [config.Independent] each named package is bumped on its own.
// Under [config.Unified] the highest resulting version is applied to every
// package in the workspace; it is never lower than any package's current
// version, so nothing moves backwards. Named packages carry [DirectChange]
// and the rest [UnifiedAlignment].
//
// A none bump still records the package with an unchanged version. A
// changeset naming no packages yields no updates. Naming a package absent
// from pkgs fails with PACKAGE_NOT_FOUND and no partial result is returned.
func (e *Engine) Resolve(cs changeset.Changeset, pkgs Packages) (*VersionResolution, error) {
	names := slices.Clone(cs.Packages)
	slices.Sort(names)
	names = slices.Compact(names)

	next := make(map[string]semver.Version, len(names))
	for _, name := range names {
		n, ok := pkgs[name]
		if !ok {
			return nil, errors.New(errors.ErrCodePackageNotFound, "changeset names unknown package %q", name)
		}
		next[name] = n.Version.Bump(cs.Bump)
	}

	res := &VersionResolution{}
	if len(names) == 0 {
		e.Logger.Debug("changeset names no packages")
		return res, nil
	}
	switch e.Strategy {
	case config.Unified:
		target := semver.Max(slices.Collect(maps.Values(next))...)
		for _, n := range pkgs {
			target = semver.Max(target, n.Version)
		}
		e.Logger.Debug("unified version selected", "version", target, "packages", len(pkgs))
		for _, name := range pkgs.Names() {
			n := pkgs[name]
			var reason UpdateReason = UnifiedAlignment{}
			if _, named := next[name]; named {
				reason = DirectChange{}
			}
			res.Updates = append(res.Updates, PackageUpdate{
				Name:           name,
				Path:           n.Path,
				CurrentVersion: n.Version,
				NextVersion:    target,
				Reason:         reason,
			})
		}
	case config.Independent, "":
		for _, name := range names {
			n := pkgs[name]
			res.Updates = append(res.Updates, PackageUpdate{
				Name:           name,
				Path:           n.Path,
				CurrentVersion: n.Version,
				NextVersion:    next[name],
				Reason:         DirectChange{},
			})
			e.Logger.Debug("direct update", "package", name, "from", n.Version, "to", next[name])
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown strategy %q", e.Strategy)
	}
	return res, nil
}
