package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aspector/aspector/pkg/errors"
	"github.com/aspector/aspector/pkg/graph"
	"github.com/aspector/aspector/pkg/pipeline"
)

// Graph output formats.
const (
	formatDOT  = "dot"
	formatJSON = "json"
	formatSVG  = "svg"
)

var validGraphFormats = map[string]bool{
	formatDOT:  true,
	formatJSON: true,
	formatSVG:  true,
}

// validateGraphFormat checks that format names a supported serialization.
func validateGraphFormat(format string) error {
	if !validGraphFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput,
			"invalid format: %q (must be one of: dot, json, svg)", format)
	}
	return nil
}

// graphCommand creates the graph command for exporting the dependency graph.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		format string
		output string
	)
	opts := pipeline.Options{Mode: pipeline.ModeDryRun}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the workspace dependency graph",
		Long: `Export the workspace dependency graph.

Without --leaf-feature the command emits the plain member graph. With one or
more leaf features it resolves the aspect first and marks leaves and affected
packages in the output, which makes the propagation paths easy to spot.

Formats:
  dot    Graphviz source (default)
  json   stable node and edge list
  svg    rendered image

Examples:
  aspector graph > workspace.dot
  aspector graph --leaf-feature logging/enable-tracing -f svg -o aspect.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateGraphFormat(format); err != nil {
				return err
			}
			return c.runGraph(cmd.Context(), opts, format, output)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatDOT, "output format: dot (default), json, svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (defaults to stdout)")
	cmd.Flags().StringArrayVar(&opts.LeafFeatures, "leaf-feature", nil, "mark this leaf feature's propagation (repeatable)")
	cmd.Flags().StringVarP(&opts.Name, "name", "n", "", "aspect feature name (defaults to the leaf's feature name)")
	cmd.Flags().StringVar(&opts.ManifestPath, "manifest-path", "", "path to the workspace Cargo.toml")
	cmd.Flags().BoolVar(&opts.Locked, "locked", false, "pass --locked to cargo metadata")
	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "pass --offline to cargo metadata")
	cmd.Flags().BoolVar(&opts.Scan, "scan", false, "parse manifests directly instead of running cargo")

	return cmd
}

// runGraph builds the graph, optionally resolves aspect marks, and writes
// the chosen serialization.
func (c *CLI) runGraph(ctx context.Context, opts pipeline.Options, format, output string) error {
	opts.Logger = loggerFromContext(ctx)
	c.selectLoader(&opts)
	runner := c.newRunner()

	var (
		g     *graph.Graph
		marks graph.Marks
	)
	if len(opts.LeafFeatures) > 0 {
		result, err := runner.Plan(ctx, opts)
		if err != nil {
			return err
		}
		g = result.Graph
		marks = result.Resolution.Marks()
	} else {
		_, built, err := runner.LoadGraph(ctx, opts)
		if err != nil {
			return err
		}
		g = built
	}

	for _, issue := range g.Issues() {
		printWarning("%s", issue)
	}

	var data []byte
	switch format {
	case formatJSON:
		var err error
		data, err = graph.ToJSON(g, marks)
		if err != nil {
			return err
		}
	case formatSVG:
		spinner := newSpinnerWithContext(ctx, "Rendering graph...")
		spinner.Start()
		svg, err := graph.RenderSVG(ctx, graph.ToDOT(g, marks))
		if err != nil {
			spinner.StopWithError("Render failed")
			return err
		}
		spinner.Stop()
		data = svg
	default:
		data = []byte(graph.ToDOT(g, marks))
	}

	return writeGraphOutput(data, output)
}

// writeGraphOutput writes the serialized graph to path, or stdout when the
// path is empty.
func writeGraphOutput(data []byte, path string) error {
	out, err := openOutput(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeWrite, err, "open %s", path)
	}
	defer out.Close()

	if _, err := out.Write(data); err != nil {
		return errors.Wrap(errors.ErrCodeWrite, err, "write graph output")
	}
	if path != "" {
		printFile(path)
	}
	return nil
}

// nopCloser makes os.Stdout compatible with io.WriteCloser.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path, or stdout when the
// path is empty. A named file is created, overwriting any existing one.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}
