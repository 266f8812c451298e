package dag

import (
	"errors"
	"slices"

	"github.com/matzehuels/stackbump/pkg/deps"
	"github.com/matzehuels/stackbump/pkg/semver"
)

var (
	// ErrInvalidNodeName is returned by [Graph.AddNode] when the package
	// name is empty.
	ErrInvalidNodeName = errors.New("package name must not be empty")

	// ErrDuplicateNode is returned by [Graph.AddNode] when a package with
	// the same name already exists in the graph.
	ErrDuplicateNode = errors.New("duplicate package")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the dependent
	// package does not exist.
	ErrUnknownSourceNode = errors.New("unknown source package")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the
	// dependency package does not exist.
	ErrUnknownTargetNode = errors.New("unknown target package")
)

// PackageNode is one workspace package.
type PackageNode struct {
	Name    string
	Version semver.Version
	// Path is the manifest file the package was read from.
	Path string
	// Dependencies holds the package's declared specifiers per type,
	// internal and external alike.
	Dependencies map[deps.DependencyType]map[string]string
}

// Spec returns the declared specifier for dep in section t.
func (n *PackageNode) Spec(t deps.DependencyType, dep string) (string, bool) {
	s, ok := n.Dependencies[t][dep]
	return s, ok
}

// Edge points from a dependent (From) to the package it depends on (To).
type Edge struct {
	From string
	To   string
	Type deps.DependencyType
	// Spec is the specifier From declares for To, e.g. "^1.0.0" or "workspace:*".
	Spec string
}

// Graph is a directed dependency graph over workspace packages. Nodes live
// in an arena indexed by insertion order; the name index gives O(1) lookup
// and the per-node adjacency lists give O(1) access to dependencies and
// dependents.
//
// Unlike a DAG, cycles are allowed: they are detected and reported by
// [Graph.DetectCycles] rather than rejected on insert.
//
// The zero value is not usable; create graphs with [New].
// Graph is not safe for concurrent mutation. Once built it is read-only and
// may be shared.
type Graph struct {
	nodes    []*PackageNode
	index    map[string]int
	edges    []Edge
	outgoing [][]int // node -> edge indices where node is From
	incoming [][]int // node -> edge indices where node is To
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// AddNode adds a package. Returns ErrInvalidNodeName for an empty name or
// ErrDuplicateNode if the name is already present.
func (g *Graph) AddNode(n PackageNode) error {
	if n.Name == "" {
		return ErrInvalidNodeName
	}
	if _, exists := g.index[n.Name]; exists {
		return ErrDuplicateNode
	}
	if n.Dependencies == nil {
		n.Dependencies = make(map[deps.DependencyType]map[string]string)
	}
	g.index[n.Name] = len(g.nodes)
	g.nodes = append(g.nodes, &n)
	g.outgoing = append(g.outgoing, nil)
	g.incoming = append(g.incoming, nil)
	return nil
}

// AddEdge records that e.From depends on e.To. Both packages must already
// exist. Self edges are accepted; they never form a reported cycle.
// Parallel edges of different types between the same pair are kept.
func (g *Graph) AddEdge(e Edge) error {
	from, ok := g.index[e.From]
	if !ok {
		return ErrUnknownSourceNode
	}
	to, ok := g.index[e.To]
	if !ok {
		return ErrUnknownTargetNode
	}
	idx := len(g.edges)
	g.edges = append(g.edges, e)
	g.outgoing[from] = append(g.outgoing[from], idx)
	g.incoming[to] = append(g.incoming[to], idx)
	return nil
}

// Node returns the package with the given name.
// The returned pointer refers to the graph's own node.
func (g *Graph) Node(name string) (*PackageNode, bool) {
	i, ok := g.index[name]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// Has reports whether name is a package in the graph.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Nodes returns all packages in insertion order.
func (g *Graph) Nodes() []*PackageNode { return slices.Clone(g.nodes) }

// Names returns all package names in insertion order.
func (g *Graph) Names() []string {
	names := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		names[i] = n.Name
	}
	return names
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of packages.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Dependencies returns the edges leaving name, i.e. the workspace packages
// name depends on. Returns nil for unknown packages.
func (g *Graph) Dependencies(name string) []Edge {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.collect(g.outgoing[i])
}

// Dependents returns the edges entering name, i.e. the workspace packages
// that depend on name. Returns nil for unknown packages.
func (g *Graph) Dependents(name string) []Edge {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.collect(g.incoming[i])
}

// DependentNames returns the distinct names of packages depending on name,
// in edge insertion order.
func (g *Graph) DependentNames(name string) []string {
	var out []string
	for _, e := range g.Dependents(name) {
		if !slices.Contains(out, e.From) {
			out = append(out, e.From)
		}
	}
	return out
}

// DependencyNames returns the distinct names of packages name depends on,
// in edge insertion order.
func (g *Graph) DependencyNames(name string) []string {
	var out []string
	for _, e := range g.Dependencies(name) {
		if !slices.Contains(out, e.To) {
			out = append(out, e.To)
		}
	}
	return out
}

func (g *Graph) collect(idx []int) []Edge {
	if len(idx) == 0 {
		return nil
	}
	out := make([]Edge, len(idx))
	for i, e := range idx {
		out[i] = g.edges[e]
	}
	return out
}

// Sources returns packages nothing else in the workspace depends on.
func (g *Graph) Sources() []*PackageNode {
	var out []*PackageNode
	for i, n := range g.nodes {
		if len(g.incoming[i]) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// Sinks returns packages with no workspace dependencies.
func (g *Graph) Sinks() []*PackageNode {
	var out []*PackageNode
	for i, n := range g.nodes {
		if len(g.outgoing[i]) == 0 {
			out = append(out, n)
		}
	}
	return out
}
