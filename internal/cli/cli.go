// Package cli implements the stackbump command-line interface.
//
// # Commands
//
//   - plan: resolve pending changesets and show every version change
//   - apply: write the resolved versions into package.json files
//   - snapshot: resolve onto ephemeral snapshot versions
//   - graph: draw the workspace dependency graph (DOT, SVG, PDF, PNG)
//   - cache: manage the resolution cache
//   - completion: shell completion scripts
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger
// travels in the command's context.Context and is handed to the library
// packages, which log structured key/value pairs.
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackbump/pkg/buildinfo"
	"github.com/matzehuels/stackbump/pkg/config"
	"github.com/matzehuels/stackbump/pkg/observability/promhooks"
)

const appName = "stackbump"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Global flags.
	dir         string
	configPath  string
	metricsFile string

	metrics *promhooks.Metrics
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Stackbump resolves dependency-aware versions for monorepos",
		Long: `Stackbump reads changesets, works out which workspace packages need a new
version (including dependents reached through the dependency graph) and
writes the result into package.json files atomically.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			if c.metricsFile != "" {
				c.metrics = promhooks.New()
				c.metrics.Install()
			}
			return nil
		},
	}
	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVarP(&c.dir, "dir", "C", ".", "workspace root")
	pf.StringVar(&c.configPath, "config", "", "config file (default <dir>/"+config.FileName+")")
	pf.StringVar(&c.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(c.planCommand())
	root.AddCommand(c.applyCommand())
	root.AddCommand(c.snapshotCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// FlushMetrics writes the collected metrics when --metrics-file was given.
// Call it once the command returned, whatever the outcome, so failed runs
// are recorded too.
func (c *CLI) FlushMetrics() error {
	if c.metrics == nil {
		return nil
	}
	c.Logger.Debug("writing metrics", "path", c.metricsFile)
	return c.metrics.WriteTextfile(c.metricsFile)
}

// stdout receives command output and status lines. Logs and the spinner
// use stderr.
var stdout io.Writer = os.Stdout
