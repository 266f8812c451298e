package dag_test

import (
	"fmt"

	"github.com/matzehuels/stackbump/pkg/config"
	"github.com/matzehuels/stackbump/pkg/dag"
	"github.com/matzehuels/stackbump/pkg/deps"
	"github.com/matzehuels/stackbump/pkg/semver"
)

func ExampleGraph_basic() {
	// app -> lib -> core
	g := dag.New()
	_ = g.AddNode(dag.PackageNode{Name: "app", Version: semver.MustParse("1.0.0")})
	_ = g.AddNode(dag.PackageNode{Name: "lib", Version: semver.MustParse("1.0.0")})
	_ = g.AddNode(dag.PackageNode{Name: "core", Version: semver.MustParse("1.0.0")})
	_ = g.AddEdge(dag.Edge{From: "app", To: "lib", Type: deps.Runtime, Spec: "^1.0.0"})
	_ = g.AddEdge(dag.Edge{From: "lib", To: "core", Type: deps.Runtime, Spec: "^1.0.0"})

	fmt.Println("Nodes:", g.NodeCount())
	fmt.Println("Edges:", g.EdgeCount())
	fmt.Println("Dependents of core:", g.DependentNames("core"))
	fmt.Println("Dependencies of app:", g.DependencyNames("app"))
	// Output:
	// Nodes: 3
	// Edges: 2
	// Dependents of core: [lib]
	// Dependencies of app: [lib]
}

func ExampleGraph_DetectCycles() {
	g := dag.New()
	for _, name := range []string{"a", "b", "c"} {
		_ = g.AddNode(dag.PackageNode{Name: name, Version: semver.MustParse("1.0.0")})
	}
	_ = g.AddEdge(dag.Edge{From: "a", To: "b"})
	_ = g.AddEdge(dag.Edge{From: "b", To: "c"})
	_ = g.AddEdge(dag.Edge{From: "c", To: "a"})

	for _, c := range g.DetectCycles() {
		fmt.Println(c.DisplayCycle())
	}
	// Output:
	// a -> b -> c -> a
}

func ExampleBuilder() {
	pkgs := []deps.PackageInfo{
		{Name: "web", Version: "2.0.0", Dependencies: map[string]string{"ui": "workspace:*", "react": "^18.0.0"}},
		{Name: "ui", Version: "1.4.0", DevDependencies: map[string]string{"testkit": "^0.1.0"}},
		{Name: "testkit", Version: "0.1.0"},
	}

	g, err := dag.NewBuilder(config.DefaultDependencyConfig(), nil).Build(pkgs)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, e := range g.Edges() {
		fmt.Printf("%s -> %s (%s %s)\n", e.From, e.To, e.Type, e.Spec)
	}
	// Output:
	// web -> ui (runtime workspace:*)
}
