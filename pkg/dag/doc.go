// Package dag provides the workspace dependency graph and cycle detection.
//
// # Overview
//
// Each workspace package is a [PackageNode]; an [Edge] points from a
// dependent to the package it depends on and carries the dependency type and
// the declared specifier. Despite the package name the graph may contain
// cycles; real workspaces do, and they are reported rather than rejected.
//
// # Building
//
// [Builder] converts discovered [deps.PackageInfo] records into a [Graph]:
//
//	g, err := dag.NewBuilder(cfg.Dependencies, logger).Build(pkgs)
//
// Only dependencies naming another workspace package become edges. Dev, peer
// and optional dependencies are included according to the
// [config.DependencyConfig] flags.
//
// # Queries
//
// [Graph.Dependencies] and [Graph.Dependents] return the outgoing and
// incoming edges of a package in O(1) plus the size of the result.
// [Graph.Nodes] and [Graph.Edges] iterate in insertion order, which the
// builder makes name-sorted.
//
// # Cycles
//
// [Graph.DetectCycles] runs Tarjan's strongly connected components algorithm
// and returns one [CircularDependency] per component of two or more
// packages:
//
//	for _, c := range g.DetectCycles() {
//	    fmt.Println(c.DisplayCycle()) // a -> b -> c -> a
//	}
package dag
