// Package pipeline wires workspace loading, aspect resolution, and manifest
// patching into a single runnable unit.
//
// This package implements the complete load → resolve → patch pipeline used
// by every command. Centralizing it keeps apply, dry-run, and verify runs on
// the exact same change plan: the modes differ only in what happens to the
// computed patches.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: resolve workspace metadata via `cargo metadata` or a manifest scan
//  2. Resolve: build the dependency graph, order it deps-first, and compute
//     the per-package forwarding plan for the aspect feature
//  3. Patch: turn each plan into a concrete edit of the member's Cargo.toml
//
// Execute then dispatches on the mode: apply writes the changed manifests
// atomically, dry-run stops after planning, and verify fails with a
// [errors.MismatchError] when any manifest is out of date.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(logger)
//	opts := pipeline.Options{
//	    LeafFeatures: []string{"logging/enable-tracing"},
//	    Mode:         pipeline.ModeDryRun,
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, p := range result.ChangedPatches() {
//	    fmt.Println(p.Package, p.Added)
//	}
//
// Commands that only need the graph can run the load stage alone:
//
//	ws, g, err := runner.LoadGraph(ctx, opts)
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/aspector/aspector/pkg/aspect"
	"github.com/aspector/aspector/pkg/errors"
	"github.com/aspector/aspector/pkg/graph"
	"github.com/aspector/aspector/pkg/manifest"
	"github.com/aspector/aspector/pkg/workspace"
)

// =============================================================================
// Modes - What Execute Does With the Computed Patches
// =============================================================================

// Mode selects what Execute does after planning.
type Mode string

const (
	// ModeApply writes every changed manifest back to disk.
	ModeApply Mode = "apply"

	// ModeDryRun computes and reports patches without writing anything.
	ModeDryRun Mode = "dry-run"

	// ModeVerify writes nothing and reports out-of-date manifests through a
	// [errors.MismatchError].
	ModeVerify Mode = "verify"
)

// DefaultMode is used when Options.Mode is empty.
const DefaultMode = ModeApply

// ValidModes is the set of supported execution modes.
var ValidModes = map[Mode]bool{
	ModeApply:  true,
	ModeDryRun: true,
	ModeVerify: true,
}

// ValidateMode checks that a mode is valid.
func ValidateMode(mode Mode) error {
	if !ValidModes[mode] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid mode: %q (must be one of: apply, dry-run, verify)", string(mode))
	}
	return nil
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a propagation run.
type Options struct {
	// Aspect options
	Name         string   // aspect feature name, inferred from a single leaf when empty
	LeafFeatures []string // leaf feature specs, "feature" or "package/feature"
	ExtraParams  []string // extra entries for direct dependents of a leaf
	NoSort       bool     // append missing entries instead of sorting the array

	// Workspace loading options
	ManifestPath string // path to a workspace Cargo.toml (empty: search from the working directory)
	Locked       bool   // pass --locked to cargo metadata
	Offline      bool   // pass --offline to cargo metadata
	Scan         bool   // parse manifests directly instead of running cargo

	// Mode selects apply, dry-run, or verify. Empty means DefaultMode.
	Mode Mode

	// Runtime options
	Logger *log.Logger      // overrides the runner's logger when set
	Loader workspace.Loader // overrides loader selection when set

	// cfg is the aspect configuration built by ValidateAndSetDefaults.
	cfg aspect.Config

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Workspace is the loaded workspace metadata.
	Workspace *workspace.Workspace

	// Graph is the workspace dependency graph.
	Graph *graph.Graph

	// Resolution holds the aspect name, leaf origins, and per-package plans.
	Resolution *aspect.Resolution

	// Patches are the computed manifest edits in deps-first order, one per
	// affected package. Patches for up-to-date manifests report no change.
	Patches []*manifest.Patch

	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	MemberCount   int
	AffectedCount int
	ChangedCount  int
	LoadTime      time.Duration
	ResolveTime   time.Duration
	PatchTime     time.Duration
	WriteTime     time.Duration
}

// ChangedPatches returns the patches that modify their manifest, in plan order.
func (r *Result) ChangedPatches() []*manifest.Patch {
	var out []*manifest.Patch
	for _, p := range r.Patches {
		if p.Changed() {
			out = append(out, p)
		}
	}
	return out
}

// ChangedPackages returns the names of packages whose manifests are out of
// date, in plan order.
func (r *Result) ChangedPackages() []string {
	var out []string
	for _, p := range r.Patches {
		if p.Changed() {
			out = append(out, p.Package)
		}
	}
	return out
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline. This method is idempotent - calling it multiple times has the
// same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if o.Mode == "" {
		o.Mode = DefaultMode
	}
	if err := ValidateMode(o.Mode); err != nil {
		return err
	}

	leaves := make([]aspect.LeafSpec, 0, len(o.LeafFeatures))
	for _, raw := range o.LeafFeatures {
		spec, err := aspect.ParseLeafSpec(raw)
		if err != nil {
			return err
		}
		leaves = append(leaves, spec)
	}
	cfg := aspect.Config{
		Name:        o.Name,
		Leaves:      leaves,
		ExtraParams: o.ExtraParams,
		Sort:        !o.NoSort,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	o.Name = cfg.Name
	o.cfg = cfg
	o.validated = true
	return nil
}

// ValidateForLoad checks the workspace loading options. It is sufficient for
// commands that only need the dependency graph and no aspect configuration.
func (o *Options) ValidateForLoad() error {
	if o.ManifestPath != "" {
		return errors.ValidateManifestPath(o.ManifestPath)
	}
	return nil
}

// Aspect returns the aspect configuration built by ValidateAndSetDefaults.
// Before validation it is the zero Config.
func (o *Options) Aspect() aspect.Config {
	return o.cfg
}

// Writes reports whether this run is allowed to modify manifests.
func (o *Options) Writes() bool {
	return o.Mode == ModeApply || o.Mode == ""
}

// workspaceLoader returns the explicit Loader when set, otherwise builds one
// from the loading options.
func (o *Options) workspaceLoader() workspace.Loader {
	if o.Loader != nil {
		return o.Loader
	}
	if o.Scan {
		return workspace.NewScanLoader(o.ManifestPath)
	}
	return workspace.NewCargoLoader(workspace.CargoOptions{
		ManifestPath: o.ManifestPath,
		Locked:       o.Locked,
		Offline:      o.Offline,
	})
}
