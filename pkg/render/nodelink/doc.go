// Package nodelink draws the workspace dependency graph as a node-link
// diagram.
//
// [ToDOT] emits Graphviz DOT with one box per package and one arrow per
// internal dependency, pointing from dependent to dependency. Line style
// encodes the dependency type. Packages and edges that form a circular
// dependency are drawn in red, and packages touched by a resolution can be
// highlighted with their version transition:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{
//	    Cycles:  g.DetectCycles(),
//	    Updated: map[string]string{"core": "1.1.0"},
//	})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// SVG is rendered in-process with [github.com/goccy/go-graphviz]; PDF and
// PNG additionally need rsvg-convert from librsvg.
package nodelink
