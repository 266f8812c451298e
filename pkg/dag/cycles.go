package dag

import (
	"slices"
	"strings"
)

// CircularDependency is a strongly connected group of two or more packages.
// Packages are listed in traversal discovery order, so for a simple ring
// A -> B -> C -> A they read A, B, C.
type CircularDependency struct {
	Packages []string `json:"packages"`
}

// DisplayCycle renders the cycle as "A -> B -> C -> A".
func (c CircularDependency) DisplayCycle() string {
	if len(c.Packages) == 0 {
		return ""
	}
	return strings.Join(append(slices.Clone(c.Packages), c.Packages[0]), " -> ")
}

// String implements fmt.Stringer.
func (c CircularDependency) String() string { return c.DisplayCycle() }

// Contains reports whether name is part of the cycle.
func (c CircularDependency) Contains(name string) bool {
	return slices.Contains(c.Packages, name)
}

// DetectCycles returns every strongly connected component with more than one
// package, using Tarjan's algorithm in O(V+E). Self edges alone are not
// reported. Roots are visited in node insertion order and successors in
// edge insertion order, so the result is deterministic for a given graph.
func (g *Graph) DetectCycles() []CircularDependency {
	t := tarjan{
		g:       g,
		index:   make([]int, len(g.nodes)),
		low:     make([]int, len(g.nodes)),
		onStack: make([]bool, len(g.nodes)),
	}
	for i := range t.index {
		t.index[i] = -1
	}
	for v := range g.nodes {
		if t.index[v] < 0 {
			t.connect(v)
		}
	}

	// Tarjan emits components in reverse topological order; report them in
	// the order their earliest member was first reached.
	slices.SortFunc(t.sccs, func(a, b []int) int { return t.index[a[0]] - t.index[b[0]] })

	out := make([]CircularDependency, 0, len(t.sccs))
	for _, scc := range t.sccs {
		names := make([]string, len(scc))
		for i, v := range scc {
			names[i] = g.nodes[v].Name
		}
		out = append(out, CircularDependency{Packages: names})
	}
	return out
}

// InCycle returns the set of package names that belong to some cycle.
func InCycle(cycles []CircularDependency) map[string]bool {
	set := make(map[string]bool)
	for _, c := range cycles {
		for _, p := range c.Packages {
			set[p] = true
		}
	}
	return set
}

type tarjan struct {
	g       *Graph
	next    int
	index   []int
	low     []int
	onStack []bool
	stack   []int
	sccs    [][]int
}

func (t *tarjan) connect(v int) {
	t.index[v] = t.next
	t.low[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, ei := range t.g.outgoing[v] {
		w := t.g.index[t.g.edges[ei].To]
		if t.index[w] < 0 {
			t.connect(w)
			t.low[v] = min(t.low[v], t.low[w])
		} else if t.onStack[w] {
			t.low[v] = min(t.low[v], t.index[w])
		}
	}

	if t.low[v] != t.index[v] {
		return
	}
	var scc []int
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		scc = append(scc, w)
		if w == v {
			break
		}
	}
	if len(scc) < 2 {
		return
	}
	// Popped members come out newest first.
	slices.Reverse(scc)
	t.sccs = append(t.sccs, scc)
}
