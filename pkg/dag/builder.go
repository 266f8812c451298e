package dag

import (
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackbump/pkg/config"
	"github.com/matzehuels/stackbump/pkg/deps"
	"github.com/matzehuels/stackbump/pkg/errors"
	"github.com/matzehuels/stackbump/pkg/semver"
)

// Builder turns discovered package records into a [Graph]. Only dependencies
// that name another workspace package become edges; everything else is
// external and ignored.
type Builder struct {
	Config config.DependencyConfig
	Logger *log.Logger
}

// NewBuilder creates a builder. A nil logger discards output.
func NewBuilder(cfg config.DependencyConfig, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Builder{Config: cfg, Logger: logger}
}

// Build validates pkgs and constructs the graph. Nodes are inserted in name
// order and edges per package in dependency-type then dependency-name
// order, so two builds of the same input produce identical graphs.
//
// Runtime dependencies always produce edges. Dev, peer and optional
// dependencies produce edges only when enabled in the config.
//
// Build fails with GRAPH_CONSTRUCTION_FAILED on duplicate or empty names,
// unparseable versions or empty dependency names.
func (b *Builder) Build(pkgs []deps.PackageInfo) (*Graph, error) {
	sorted := slices.Clone(pkgs)
	slices.SortFunc(sorted, func(x, y deps.PackageInfo) int { return strings.Compare(x.Name, y.Name) })

	g := New()
	for _, p := range sorted {
		node, err := NewPackageNode(p)
		if err != nil {
			return nil, err
		}
		switch err := g.AddNode(node); err {
		case nil:
		case ErrDuplicateNode:
			return nil, errors.New(errors.ErrCodeGraphConstruction, "duplicate package %q", p.Name)
		default:
			return nil, errors.Wrap(errors.ErrCodeGraphConstruction, err, "package at %s", p.Path)
		}
	}

	for _, p := range sorted {
		for _, t := range deps.AllTypes {
			if !b.Config.Includes(t) {
				continue
			}
			for _, dep := range p.DependencyNames(t) {
				if dep == "" {
					return nil, errors.New(errors.ErrCodeGraphConstruction, "package %q declares an empty %s name", p.Name, t.Section())
				}
				spec := p.DependenciesOf(t)[dep]
				target, ok := g.Node(dep)
				if !ok {
					continue
				}
				if !isInternal(spec, target.Version) {
					b.Logger.Debug("treating dependency as external", "package", p.Name, "dependency", dep, "spec", spec)
					continue
				}
				// Both endpoints exist, so AddEdge cannot fail.
				_ = g.AddEdge(Edge{From: p.Name, To: dep, Type: t, Spec: spec})
			}
		}
	}

	b.Logger.Debug("built dependency graph", "packages", g.NodeCount(), "edges", g.EdgeCount())
	return g, nil
}

// NewPackageNode converts a discovered record into a node, parsing its
// version. Unparseable versions fail with GRAPH_CONSTRUCTION_FAILED.
func NewPackageNode(p deps.PackageInfo) (PackageNode, error) {
	v, err := semver.Parse(p.Version)
	if err != nil {
		return PackageNode{}, errors.Wrap(errors.ErrCodeGraphConstruction, err, "package %q", p.Name)
	}
	node := PackageNode{
		Name:         p.Name,
		Version:      v,
		Path:         p.Path,
		Dependencies: make(map[deps.DependencyType]map[string]string),
	}
	for _, t := range deps.AllTypes {
		if m := p.DependenciesOf(t); len(m) > 0 {
			node.Dependencies[t] = m
		}
	}
	return node, nil
}

// isInternal decides whether a specifier naming a workspace package refers
// to the local copy. Local protocols always do. An npm alias never does.
// A plain range counts unless it is a valid constraint the local version
// does not satisfy, which means the registry copy is wanted.
func isInternal(spec string, local semver.Version) bool {
	switch p := deps.DetectProtocol(spec).(type) {
	case deps.Workspace, deps.Local:
		return true
	case deps.Semver:
		if strings.HasPrefix(p.Range, "npm:") {
			return false
		}
		if semver.ValidRange(p.Range) && !local.Satisfies(p.Range) {
			return false
		}
	}
	return true
}
