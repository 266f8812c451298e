package version

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackbump/pkg/config"
	"github.com/matzehuels/stackbump/pkg/dag"
	"github.com/matzehuels/stackbump/pkg/deps"
	"github.com/matzehuels/stackbump/pkg/semver"
)

// Propagator carries updates from changed packages to their dependents.
type Propagator struct {
	Config config.DependencyConfig
	Logger *log.Logger

	bump semver.Bump
}

// NewPropagator validates the propagation bump and returns a propagator.
// An unknown bump fails with INVALID_BUMP. A nil logger discards output.
func NewPropagator(cfg config.DependencyConfig, logger *log.Logger) (*Propagator, error) {
	bump, err := cfg.Bump()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Propagator{Config: cfg, Logger: logger, bump: bump}, nil
}

// Propagate walks g breadth-first from the packages already in res and
// appends an update for every dependent reached, in BFS order.
//
// Each dependent is bumped by the configured propagation bump applied to its
// own current version, and its specifier for the changed dependency is
// rewritten unless the specifier's protocol is skipped. A package is updated
// at most once; when an already-updated package is reached again it only
// gains the specifier rewrite. Levels beyond MaxPropagationDepth (when
// non-zero) are not visited, so the walk terminates on cyclic graphs.
//
// Propagate does nothing when PropagateUpdates is off.
func (p *Propagator) Propagate(g *dag.Graph, pkgs Packages, res *VersionResolution) {
	if !p.Config.PropagateUpdates || g == nil {
		return
	}

	updated := make(map[string]int, len(res.Updates))
	frontier := make([]string, 0, len(res.Updates))
	for i, u := range res.Updates {
		updated[u.Name] = i
		frontier = append(frontier, u.Name)
	}

	for depth := 1; len(frontier) > 0; depth++ {
		if limit := p.Config.MaxPropagationDepth; limit > 0 && depth > limit {
			p.Logger.Debug("propagation depth limit reached", "depth", limit, "pending", len(frontier))
			return
		}

		var next []string
		for _, name := range frontier {
			changed := res.Updates[updated[name]].NextVersion
			for _, e := range g.Dependents(name) {
				if e.From == name || !p.Config.Includes(e.Type) {
					continue
				}
				du, rewritten := p.rewrite(e, changed)

				if i, seen := updated[e.From]; seen {
					if rewritten {
						res.Updates[i].addDependencyUpdate(du)
					}
					continue
				}

				n, ok := pkgs[e.From]
				if !ok {
					continue
				}
				u := PackageUpdate{
					Name:           n.Name,
					Path:           n.Path,
					CurrentVersion: n.Version,
					NextVersion:    n.Version.Bump(p.bump),
					Reason:         DependencyPropagation{TriggeredBy: name, Depth: depth},
				}
				if rewritten {
					u.DependencyUpdates = append(u.DependencyUpdates, du)
				}
				updated[n.Name] = len(res.Updates)
				res.Updates = append(res.Updates, u)
				next = append(next, n.Name)

				p.Logger.Debug("propagated update",
					"package", n.Name,
					"triggered_by", name,
					"depth", depth,
					"to", u.NextVersion)
			}
		}
		frontier = next
	}
}

func (p *Propagator) rewrite(e dag.Edge, next semver.Version) (DependencyUpdate, bool) {
	spec, changed := deps.RewriteSpec(e.Spec, next, p.Config.SkipProtocols)
	return DependencyUpdate{Name: e.To, Type: e.Type, OldSpec: e.Spec, NewSpec: spec}, changed
}
