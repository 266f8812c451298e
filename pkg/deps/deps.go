package deps

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// DependencyType classifies a declared dependency by the manifest section
// it appears in.
type DependencyType int

const (
	// Runtime dependencies are always part of the graph.
	Runtime DependencyType = iota
	// Dev dependencies are only needed to build and test a package.
	Dev
	// Peer dependencies are expected to be provided by the consumer.
	Peer
	// Optional dependencies may be missing at install time.
	Optional
)

// AllTypes lists every dependency type in precedence order. When a package
// declares the same dependency in several sections, the earliest type in
// this list is treated as the primary one.
var AllTypes = []DependencyType{Runtime, Peer, Optional, Dev}

var typeNames = map[DependencyType]string{
	Runtime:  "runtime",
	Dev:      "dev",
	Peer:     "peer",
	Optional: "optional",
}

var typeSections = map[DependencyType]string{
	Runtime:  "dependencies",
	Dev:      "devDependencies",
	Peer:     "peerDependencies",
	Optional: "optionalDependencies",
}

// String returns the short lower-case name ("runtime", "dev", ...).
func (t DependencyType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

// Section returns the package.json key holding dependencies of this type.
func (t DependencyType) Section() string { return typeSections[t] }

// MarshalText implements encoding.TextMarshaler.
func (t DependencyType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DependencyType) UnmarshalText(text []byte) error {
	for k, v := range typeNames {
		if v == string(text) {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown dependency type %q", text)
}

// PackageInfo is a discovered workspace package: its identity, current
// version, manifest location and raw dependency declarations (name -> specifier).
type PackageInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	// Path is the manifest file the package was read from.
	Path string `json:"path"`

	Dependencies         map[string]string `json:"dependencies,omitempty"`
	DevDependencies      map[string]string `json:"devDependencies,omitempty"`
	PeerDependencies     map[string]string `json:"peerDependencies,omitempty"`
	OptionalDependencies map[string]string `json:"optionalDependencies,omitempty"`
}

// DependenciesOf returns the declarations for one dependency type.
// The returned map must not be modified.
func (p PackageInfo) DependenciesOf(t DependencyType) map[string]string {
	switch t {
	case Runtime:
		return p.Dependencies
	case Dev:
		return p.DevDependencies
	case Peer:
		return p.PeerDependencies
	case Optional:
		return p.OptionalDependencies
	}
	return nil
}

// DependencyNames returns the sorted names declared under type t.
func (p PackageInfo) DependencyNames(t DependencyType) []string {
	return slices.Sorted(maps.Keys(p.DependenciesOf(t)))
}

// Discoverer lists the packages of a workspace.
type Discoverer interface {
	// Discover returns the workspace packages in a stable order.
	Discover(ctx context.Context) ([]PackageInfo, error)
}

// Static is a Discoverer over an in-memory package list.
type Static []PackageInfo

// Discover returns a copy of the list.
func (s Static) Discover(ctx context.Context) ([]PackageInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s), nil
}
