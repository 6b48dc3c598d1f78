// Package cli implements the aspector command-line interface.
//
// This package provides commands for propagating a feature aspect across a
// Cargo workspace and for exporting the workspace dependency graph. The CLI
// is built using cobra and supports verbose logging via the charmbracelet/log
// library.
//
// # Commands
//
// The main commands are:
//   - propagate: Add forwarding entries for an aspect feature to every
//     package that transitively depends on the leaf
//   - graph: Export the dependency graph as DOT, JSON, or SVG
//   - completion: Generate shell completion scripts
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger is
// attached to the command context and retrievable with loggerFromContext.
//
// # Example
//
//	import "github.com/aspector/aspector/internal/cli"
//
//	func main() {
//	    c := cli.New(os.Stderr, cli.LogInfo)
//	    if err := c.RootCommand().ExecuteContext(ctx); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/aspector/aspector/pkg/buildinfo"
	"github.com/aspector/aspector/pkg/pipeline"
	"github.com/aspector/aspector/pkg/workspace"
)

// appName is the application name used in command output.
const appName = "aspector"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   appName,
		Short: "Aspector propagates feature aspects across Cargo workspaces",
		Long: `Aspector maintains feature aspects: workspace-wide features, like an
enable-tracing flag, that every package transitively depending on a leaf
crate must declare and forward to its direct dependencies.

Given the leaf feature, aspector computes which workspace members reach the
leaf, plans one forwarding entry per direct dependency edge on those paths,
and edits each member's [features] array in place without disturbing the
rest of the manifest.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true, // main prints the error once, with its exit code
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				c.SetLogLevel(log.DebugLevel)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.propagateCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner() *pipeline.Runner {
	return pipeline.NewRunner(c.Logger)
}

// selectLoader picks the metadata source for a run: cargo when available on
// PATH, the built-in manifest scanner otherwise. Explicit --scan and
// pre-seeded loaders are left alone.
func (c *CLI) selectLoader(opts *pipeline.Options) {
	if opts.Scan || opts.Loader != nil {
		return
	}
	cargo := workspace.NewCargoLoader(workspace.CargoOptions{
		ManifestPath: opts.ManifestPath,
		Locked:       opts.Locked,
		Offline:      opts.Offline,
	})
	if !cargo.Available() {
		c.Logger.Warn("cargo not found on PATH, falling back to manifest scan")
		opts.Scan = true
		return
	}
	opts.Loader = cargo
}
