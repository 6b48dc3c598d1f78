package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aspector/aspector/pkg/errors"
	"github.com/aspector/aspector/pkg/manifest"
	"github.com/aspector/aspector/pkg/pipeline"
)

// propagateOpts holds the command-line flags for the propagate command.
type propagateOpts struct {
	leaves       []string // --leaf-feature, repeatable
	name         string   // aspect name override
	extraParams  []string // --add-feature-param, repeatable
	noSort       bool
	dryRun       bool
	verify       bool
	manifestPath string
	locked       bool
	offline      bool
	scan         bool
	interactive  bool
}

// mode maps the mutually exclusive mode flags onto a pipeline mode.
func (o *propagateOpts) mode() pipeline.Mode {
	switch {
	case o.dryRun:
		return pipeline.ModeDryRun
	case o.verify:
		return pipeline.ModeVerify
	default:
		return pipeline.ModeApply
	}
}

// commandLine reconstructs an equivalent apply invocation, used for
// next-step hints after dry-run and verify.
func (o *propagateOpts) commandLine() string {
	parts := []string{appName, "propagate"}
	for _, l := range o.leaves {
		parts = append(parts, "--leaf-feature", l)
	}
	if o.name != "" {
		parts = append(parts, "--name", o.name)
	}
	for _, p := range o.extraParams {
		parts = append(parts, "--add-feature-param", p)
	}
	if o.noSort {
		parts = append(parts, "--no-sort")
	}
	if o.manifestPath != "" {
		parts = append(parts, "--manifest-path", o.manifestPath)
	}
	if o.locked {
		parts = append(parts, "--locked")
	}
	if o.offline {
		parts = append(parts, "--offline")
	}
	if o.scan {
		parts = append(parts, "--scan")
	}
	return strings.Join(parts, " ")
}

// propagateCommand creates the propagate command, the tool's core operation.
func (c *CLI) propagateCommand() *cobra.Command {
	opts := propagateOpts{}

	cmd := &cobra.Command{
		Use:   "propagate",
		Short: "Propagate an aspect feature to every dependent of its leaf",
		Long: `Propagate an aspect feature across the workspace.

The leaf feature names the crate that owns the aspect, for example
logging/enable-tracing. Every workspace member that transitively depends on
the leaf gets an entry forwarding the aspect through each of its own direct
dependencies on those paths; members that cannot reach the leaf are left
alone, and so is the leaf itself.

Edited arrays are deduplicated and sorted by default; --no-sort appends the
missing entries and preserves the existing order instead. Manifest
formatting, comments, and unrelated entries always survive the edit.

Examples:
  aspector propagate --leaf-feature logging/enable-tracing
  aspector propagate --leaf-feature tracing --name enable-tracing --dry-run
  aspector propagate --leaf-feature logging/enable-tracing --verify`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPropagate(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.leaves, "leaf-feature", nil, "leaf feature as package/feature or feature (repeatable)")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "aspect feature name (defaults to the leaf's feature name)")
	cmd.Flags().StringArrayVar(&opts.extraParams, "add-feature-param", nil, "extra entry for direct dependents of the leaf (repeatable)")
	cmd.Flags().BoolVar(&opts.noSort, "no-sort", false, "append missing entries instead of sorting the array")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "show planned changes without writing")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "fail if any manifest is missing planned entries")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "verify")
	cmd.Flags().StringVar(&opts.manifestPath, "manifest-path", "", "path to the workspace Cargo.toml")
	cmd.Flags().BoolVar(&opts.locked, "locked", false, "pass --locked to cargo metadata")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "pass --offline to cargo metadata")
	cmd.Flags().BoolVar(&opts.scan, "scan", false, "parse manifests directly instead of running cargo")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "review the planned changes before applying")

	return cmd
}

// runPropagate executes the pipeline and renders the mode-specific outcome.
func (c *CLI) runPropagate(ctx context.Context, opts propagateOpts) error {
	logger := loggerFromContext(ctx)
	popts := pipeline.Options{
		Name:         opts.name,
		LeafFeatures: opts.leaves,
		ExtraParams:  opts.extraParams,
		NoSort:       opts.noSort,
		ManifestPath: opts.manifestPath,
		Locked:       opts.locked,
		Offline:      opts.offline,
		Scan:         opts.scan,
		Mode:         opts.mode(),
		Logger:       logger,
	}
	c.selectLoader(&popts)

	runner := c.newRunner()

	if opts.interactive && popts.Mode == pipeline.ModeApply {
		return c.reviewAndApply(ctx, runner, popts)
	}

	prog := newProgress(logger)
	result, err := runner.Execute(ctx, popts)
	if err != nil {
		var mismatch *errors.MismatchError
		if stderrors.As(err, &mismatch) && result != nil {
			printVerifyFailure(result, opts)
		}
		return err
	}
	prog.done(fmt.Sprintf("Processed %d members, %d affected",
		result.Stats.MemberCount, len(result.Patches)))

	switch popts.Mode {
	case pipeline.ModeDryRun:
		printPlan(result)
		if changed := result.ChangedPatches(); len(changed) > 0 {
			printNewline()
			printInfo("dry-run: %d manifests would change, none written", len(changed))
			printNextStep("To write these changes", opts.commandLine())
		}
	case pipeline.ModeVerify:
		printSuccess("all %d affected manifests are up to date", len(result.Patches))
	default:
		printApplied(result)
	}
	return nil
}

// printPlan shows the plan header and every pending change.
func printPlan(result *pipeline.Result) {
	printKeyValue("aspect", result.Resolution.Aspect)
	printKeyValue("leaves", strings.Join(result.Resolution.Leaves, ", "))
	printStats(result.Stats.MemberCount, len(result.Patches), result.Stats.ChangedCount)
	printNewline()

	changed := result.ChangedPatches()
	if len(changed) == 0 {
		printSuccess("nothing to do, every affected manifest already forwards the aspect")
		return
	}
	for _, p := range changed {
		printPatch(p)
	}
}

// printApplied summarizes an apply run.
func printApplied(result *pipeline.Result) {
	changed := result.ChangedPatches()
	if len(changed) == 0 {
		printSuccess("nothing to do, all %d affected manifests already forward %s",
			len(result.Patches), result.Resolution.Aspect)
		return
	}
	for _, p := range changed {
		printPatch(p)
	}
	printNewline()
	printSuccess("updated %d of %d affected manifests", len(changed), len(result.Patches))
	printStats(result.Stats.MemberCount, len(result.Patches), len(changed))
}

// printVerifyFailure itemizes the packages whose manifests are out of date.
func printVerifyFailure(result *pipeline.Result, opts propagateOpts) {
	changed := result.ChangedPatches()
	printError("%d of %d affected manifests are out of date", len(changed), len(result.Patches))
	for _, p := range changed {
		if len(p.Added) > 0 {
			printDetail("%s: %s is missing %s", p.Package, p.Feature, strings.Join(p.Added, ", "))
		} else {
			printDetail("%s: %s needs resorting", p.Package, p.Feature)
		}
	}
	printNewline()
	printNextStep("To fix", opts.commandLine())
}

// printPatch shows one package's updated feature array, new entries
// highlighted.
func printPatch(p *manifest.Patch) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + StyleHighlight.Render(p.Package))
	fmt.Println("    " + StyleDim.Render(p.Feature+" = ") + formatEntries(p.After, p.Added))
}
