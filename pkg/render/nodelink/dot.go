package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/stackbump/pkg/dag"
	"github.com/matzehuels/stackbump/pkg/deps"
	"github.com/matzehuels/stackbump/pkg/render"
)

const cycleColor = "#d62728"

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds versions to node labels and specifiers to edges.
	Detailed bool
	// Cycles are drawn in red: their members and the edges between members
	// of the same cycle.
	Cycles []dag.CircularDependency
	// Updated maps package names to their next version. Updated packages
	// are filled and show the transition in their label.
	Updated map[string]string
}

var edgeStyles = map[deps.DependencyType]string{
	deps.Runtime:  "solid",
	deps.Dev:      "dashed",
	deps.Peer:     "dotted",
	deps.Optional: "bold",
}

// ToDOT converts g to Graphviz DOT. Edges point from dependent to
// dependency and are styled by dependency type: runtime solid, dev dashed,
// peer dotted, optional bold.
func ToDOT(g *dag.Graph, opts Options) string {
	cycleOf := map[string]int{}
	for i, c := range opts.Cycles {
		for _, name := range c.Packages {
			if _, ok := cycleOf[name]; !ok {
				cycleOf[name] = i
			}
		}
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		_, inCycle := cycleOf[n.Name]
		next, updated := opts.Updated[n.Name]
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Name, strings.Join(nodeAttrs(n, opts.Detailed, inCycle, next, updated), ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		attrs := []string{"style=" + edgeStyles[e.Type]}
		if opts.Detailed {
			attrs = append(attrs, fmt.Sprintf("label=%q", e.Spec), "fontsize=10")
		}
		from, okFrom := cycleOf[e.From]
		to, okTo := cycleOf[e.To]
		if okFrom && okTo && from == to {
			attrs = append(attrs, "color=\""+cycleColor+"\"", "penwidth=2")
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n *dag.PackageNode, detailed, inCycle bool, next string, updated bool) []string {
	label := n.Name
	switch {
	case updated:
		label += fmt.Sprintf("\n%s → %s", n.Version, next)
	case detailed:
		label += "\n" + n.Version.String()
	}

	attrs := []string{fmt.Sprintf("label=%q", label)}
	if updated {
		attrs = append(attrs, "fillcolor=\"#e8f4ea\"")
	}
	if inCycle {
		attrs = append(attrs, "color=\""+cycleColor+"\"", "fontcolor=\""+cycleColor+"\"", "penwidth=2")
	}
	return attrs
}

// RenderSVG renders DOT source to SVG in-process with Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one whose
// width and height match the viewBox, so the SVG scales in browsers.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}

// RenderPDF renders DOT source to PDF via SVG. Requires rsvg-convert.
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders DOT source to PNG via SVG. Requires rsvg-convert.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
