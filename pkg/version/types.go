package version

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/matzehuels/stackbump/pkg/dag"
	"github.com/matzehuels/stackbump/pkg/deps"
	"github.com/matzehuels/stackbump/pkg/semver"
)

// UpdateReason explains why a package is updated. It is a closed set:
// [DirectChange], [DependencyPropagation] or [UnifiedAlignment].
type UpdateReason interface {
	fmt.Stringer
	isReason()
}

// DirectChange marks a package named by the changeset.
type DirectChange struct{}

// DependencyPropagation marks a package updated because a dependency changed.
type DependencyPropagation struct {
	// TriggeredBy is the updated dependency that reached this package.
	TriggeredBy string
	// Depth is the 1-based BFS level at which the package was reached.
	Depth int
}

// UnifiedAlignment marks a package the changeset does not name that the
// unified strategy moves to the shared version.
type UnifiedAlignment struct{}

func (DirectChange) isReason()          {}
func (DependencyPropagation) isReason() {}
func (UnifiedAlignment) isReason()      {}

func (DirectChange) String() string     { return "direct change" }
func (UnifiedAlignment) String() string { return "unified release" }

func (r DependencyPropagation) String() string {
	return fmt.Sprintf("dependency %s changed (depth %d)", r.TriggeredBy, r.Depth)
}

// DependencyUpdate is one specifier rewritten in a dependent's manifest.
type DependencyUpdate struct {
	Name    string              `json:"name"`
	Type    deps.DependencyType `json:"type"`
	OldSpec string              `json:"old_spec"`
	NewSpec string              `json:"new_spec"`
}

// PackageUpdate is the decision for one package.
type PackageUpdate struct {
	Name              string
	Path              string
	CurrentVersion    semver.Version
	NextVersion       semver.Version
	// Snapshot is the composed snapshot version, if one was applied. It is
	// written verbatim and need not be valid semver.
	Snapshot          string
	Reason            UpdateReason
	DependencyUpdates []DependencyUpdate
}

// Target returns the version string written to the manifest: the snapshot
// when set, otherwise the next version.
func (u PackageUpdate) Target() string {
	if u.Snapshot != "" {
		return u.Snapshot
	}
	return u.NextVersion.String()
}

// VersionChanged reports whether the package moves to a new version.
// Updates with a none bump are recorded but do not change the version
// unless a snapshot was applied.
func (u PackageUpdate) VersionChanged() bool {
	return u.Snapshot != "" || !u.CurrentVersion.Equal(u.NextVersion)
}

// Propagated reports whether the update came from dependency propagation.
func (u PackageUpdate) Propagated() bool {
	_, ok := u.Reason.(DependencyPropagation)
	return ok
}

func (u *PackageUpdate) addDependencyUpdate(du DependencyUpdate) {
	for _, existing := range u.DependencyUpdates {
		if existing.Name == du.Name && existing.Type == du.Type {
			return
		}
	}
	u.DependencyUpdates = append(u.DependencyUpdates, du)
}

type reasonJSON struct {
	Type        string `json:"type"`
	TriggeredBy string `json:"triggered_by,omitempty"`
	Depth       int    `json:"depth,omitempty"`
}

type packageUpdateJSON struct {
	Name              string             `json:"name"`
	Path              string             `json:"path"`
	CurrentVersion    semver.Version     `json:"current_version"`
	NextVersion       semver.Version     `json:"next_version"`
	Snapshot          string             `json:"snapshot,omitempty"`
	Reason            reasonJSON         `json:"reason"`
	DependencyUpdates []DependencyUpdate `json:"dependency_updates,omitempty"`
}

// MarshalJSON encodes the reason as a tagged object: {"type":"direct"},
// {"type":"unified"} or {"type":"propagation","triggered_by":"a","depth":1}.
func (u PackageUpdate) MarshalJSON() ([]byte, error) {
	out := packageUpdateJSON{
		Name:              u.Name,
		Path:              u.Path,
		CurrentVersion:    u.CurrentVersion,
		NextVersion:       u.NextVersion,
		Snapshot:          u.Snapshot,
		DependencyUpdates: u.DependencyUpdates,
	}
	switch r := u.Reason.(type) {
	case DependencyPropagation:
		out.Reason = reasonJSON{Type: "propagation", TriggeredBy: r.TriggeredBy, Depth: r.Depth}
	case UnifiedAlignment:
		out.Reason = reasonJSON{Type: "unified"}
	default:
		out.Reason = reasonJSON{Type: "direct"}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (u *PackageUpdate) UnmarshalJSON(data []byte) error {
	var in packageUpdateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*u = PackageUpdate{
		Name:              in.Name,
		Path:              in.Path,
		CurrentVersion:    in.CurrentVersion,
		NextVersion:       in.NextVersion,
		Snapshot:          in.Snapshot,
		DependencyUpdates: in.DependencyUpdates,
	}
	switch in.Reason.Type {
	case "direct":
		u.Reason = DirectChange{}
	case "unified":
		u.Reason = UnifiedAlignment{}
	case "propagation":
		u.Reason = DependencyPropagation{TriggeredBy: in.Reason.TriggeredBy, Depth: in.Reason.Depth}
	default:
		return fmt.Errorf("unknown update reason %q", in.Reason.Type)
	}
	return nil
}

// VersionResolution is the outcome of one resolution: every package update,
// direct updates first and then propagated ones in BFS order, plus the
// cycles found in the graph.
type VersionResolution struct {
	Updates              []PackageUpdate          `json:"updates"`
	CircularDependencies []dag.CircularDependency `json:"circular_dependencies"`
}

// Update returns the update for name.
func (r *VersionResolution) Update(name string) (*PackageUpdate, bool) {
	i := slices.IndexFunc(r.Updates, func(u PackageUpdate) bool { return u.Name == name })
	if i < 0 {
		return nil, false
	}
	return &r.Updates[i], true
}

// Names returns the updated package names in update order.
func (r *VersionResolution) Names() []string {
	names := make([]string, len(r.Updates))
	for i, u := range r.Updates {
		names[i] = u.Name
	}
	return names
}

// HasCycles reports whether any circular dependency was recorded.
func (r *VersionResolution) HasCycles() bool { return len(r.CircularDependencies) > 0 }

// Counts returns the number of direct and propagated updates. Unified
// alignments count as direct.
func (r *VersionResolution) Counts() (direct, propagated int) {
	for _, u := range r.Updates {
		if u.Propagated() {
			propagated++
		} else {
			direct++
		}
	}
	return direct, propagated
}
