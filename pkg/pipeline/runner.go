package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/aspector/aspector/pkg/aspect"
	"github.com/aspector/aspector/pkg/errors"
	"github.com/aspector/aspector/pkg/graph"
	"github.com/aspector/aspector/pkg/manifest"
	"github.com/aspector/aspector/pkg/workspace"
)

// Runner encapsulates pipeline execution.
//
// The Runner is stateless except for the logger - it doesn't store pipeline
// results. Multiple goroutines can safely use the same Runner with different
// options.
type Runner struct {
	Logger *log.Logger
}

// NewRunner creates a runner with the given logger.
// If logger is nil, the default logger is used.
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Logger: logger}
}

// Execute runs the complete load → resolve → patch pipeline and dispatches on
// the mode.
//
// In ModeVerify, out-of-date manifests make Execute return the result
// together with a *errors.MismatchError so callers can itemize the stale
// packages. Every other error returns a nil result.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result, err := r.plan(ctx, &opts)
	if err != nil {
		return nil, err
	}

	switch opts.Mode {
	case ModeApply:
		if err := r.write(ctx, &opts, result); err != nil {
			return nil, err
		}
	case ModeVerify:
		if stale := result.ChangedPackages(); len(stale) > 0 {
			return result, &errors.MismatchError{Packages: stale}
		}
	}

	return result, nil
}

// Plan computes the full change plan without touching any manifest,
// regardless of the mode.
func (r *Runner) Plan(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return r.plan(ctx, &opts)
}

// LoadGraph runs the load stage alone: workspace metadata plus the validated
// dependency graph, with no aspect configuration required.
func (r *Runner) LoadGraph(ctx context.Context, opts Options) (*workspace.Workspace, *graph.Graph, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, nil, err
	}
	logger := r.logger(&opts)

	start := time.Now()
	ws, err := opts.workspaceLoader().Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	g, err := graph.Build(ws)
	if err != nil {
		return nil, nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, nil, err
	}

	logger.Info("loaded workspace",
		"members", ws.Len(),
		"edges", g.EdgeCount(),
		"duration", time.Since(start))

	return ws, g, nil
}

// plan runs the load, resolve, and patch stages. opts must be validated.
func (r *Runner) plan(ctx context.Context, opts *Options) (*Result, error) {
	logger := r.logger(opts)
	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	ws, err := opts.workspaceLoader().Load(ctx)
	if err != nil {
		return nil, err
	}
	result.Workspace = ws
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.MemberCount = ws.Len()

	logger.Info("loaded workspace",
		"members", ws.Len(),
		"duration", result.Stats.LoadTime)

	// Stage 2: Resolve
	resolveStart := time.Now()
	g, err := graph.Build(ws)
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	order, err := g.TopoOrder()
	if err != nil {
		return nil, err
	}
	res, err := aspect.Resolve(g, order, opts.Aspect())
	if err != nil {
		return nil, err
	}
	result.Graph = g
	result.Resolution = res
	result.Stats.ResolveTime = time.Since(resolveStart)
	result.Stats.AffectedCount = len(res.Plans)

	for _, w := range res.Warnings {
		logger.Warn("ignoring unresolved dependency",
			"package", w.Package,
			"dep", w.Dep,
			"reason", w.Reason)
	}
	logger.Info("resolved aspect",
		"aspect", res.Aspect,
		"leaves", res.Leaves,
		"affected", len(res.Plans),
		"duration", result.Stats.ResolveTime)

	// Stage 3: Patch
	patchStart := time.Now()
	for _, p := range res.Plans {
		doc, err := manifest.Load(p.Package.ManifestPath)
		if err != nil {
			return nil, err
		}
		patch, err := manifest.Compute(doc, p)
		if err != nil {
			return nil, err
		}
		result.Patches = append(result.Patches, patch)
		if patch.Changed() {
			result.Stats.ChangedCount++
		}
	}
	result.Stats.PatchTime = time.Since(patchStart)

	logger.Info("computed patches",
		"packages", len(result.Patches),
		"changed", result.Stats.ChangedCount,
		"duration", result.Stats.PatchTime)

	return result, nil
}

// write persists every changed patch. Unchanged manifests are left alone so
// repeated runs never rewrite a file.
func (r *Runner) write(ctx context.Context, opts *Options, result *Result) error {
	logger := r.logger(opts)

	writeStart := time.Now()
	written := 0
	for _, p := range result.Patches {
		if !p.Changed() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Write(); err != nil {
			return err
		}
		logger.Debug("wrote manifest", "package", p.Package, "path", p.Path)
		written++
	}
	result.Stats.WriteTime = time.Since(writeStart)

	logger.Info("updated manifests",
		"written", written,
		"duration", result.Stats.WriteTime)
	return nil
}

// logger returns the options logger when set, the runner's otherwise.
func (r *Runner) logger(opts *Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return r.Logger
}
