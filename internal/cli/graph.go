package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackbump/pkg/dag"
	"github.com/matzehuels/stackbump/pkg/render/nodelink"
)

const (
	formatDOT = "dot"
	formatSVG = "svg"
	formatPDF = "pdf"
	formatPNG = "png"
)

// graphCommand draws the workspace dependency graph.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		rf       resolveFlags
		format   string
		output   string
		detailed bool
		updates  bool
		scale    float64
	)
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Draw the workspace dependency graph",
		Long: `Graph builds the internal dependency graph of the workspace and renders it.
Members of dependency cycles are drawn in red. With --updates the pending
changesets are resolved and packages that would change are highlighted
with their version transition.

DOT output needs nothing else; SVG uses the bundled Graphviz, while PDF and
PNG additionally require rsvg-convert on PATH.`,
		Example: `  stackbump graph > deps.dot
  stackbump graph --format svg -o deps.svg
  stackbump graph --updates --detailed --format png -o plan.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			format = strings.ToLower(format)
			switch format {
			case formatDOT, formatSVG, formatPDF, formatPNG:
			default:
				return fmt.Errorf("unknown format %q (want dot, svg, pdf or png)", format)
			}

			cfg, err := c.loadConfig(cmd, &rf)
			if err != nil {
				return err
			}
			g, err := c.buildGraph(ctx, cfg)
			if err != nil {
				return err
			}
			opts := nodelink.Options{Detailed: detailed, Cycles: g.DetectCycles()}
			if updates {
				r, err := c.resolve(cmd, &rf)
				if err != nil {
					return err
				}
				opts.Updated = make(map[string]string, len(r.res.Updates))
				for _, u := range r.res.Updates {
					opts.Updated[u.Name] = u.Target()
				}
			}

			data, err := renderGraph(cmd, g, opts, format, scale)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = stdout.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			printSuccess("Wrote %s (%d packages, %d edges)", output, g.NodeCount(), g.EdgeCount())
			return nil
		},
	}
	rf.register(cmd)
	fl := cmd.Flags()
	fl.StringVarP(&format, "format", "f", formatDOT, "output format: dot, svg, pdf, png")
	fl.StringVarP(&output, "output", "o", "", "output file (default stdout)")
	fl.BoolVar(&detailed, "detailed", false, "label edges with their specifiers")
	fl.BoolVar(&updates, "updates", false, "highlight packages the pending changesets would bump")
	fl.Float64Var(&scale, "scale", 2, "PNG scale factor")
	return cmd
}

func renderGraph(cmd *cobra.Command, g *dag.Graph, opts nodelink.Options, format string, scale float64) ([]byte, error) {
	dot := nodelink.ToDOT(g, opts)
	ctx := cmd.Context()
	switch format {
	case formatSVG:
		return nodelink.RenderSVG(ctx, dot)
	case formatPDF:
		return nodelink.RenderPDF(ctx, dot)
	case formatPNG:
		return nodelink.RenderPNG(ctx, dot, scale)
	}
	return []byte(dot), nil
}
