package aspect

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/aspector/aspector/pkg/errors"
	"github.com/aspector/aspector/pkg/graph"
	"github.com/aspector/aspector/pkg/workspace"
)

// Plan is the computed change for one package: the aspect feature it must
// declare and the entries that feature must contain.
type Plan struct {
	Package  *workspace.Package
	Feature  string
	Required []string // forwarding references, dependency order, deduplicated
	Extras   []string // extra params, present only on direct dependents of a leaf
	Sort     bool
}

// Entries returns the required forwarding references followed by the extra
// parameters, the order in which missing entries are appended.
func (p Plan) Entries() []string {
	return append(slices.Clone(p.Required), p.Extras...)
}

// Resolution is the outcome of a propagation walk.
type Resolution struct {
	Aspect   string
	Leaves   []string      // leaf package names, ascending
	Plans    []Plan        // one per affected package, dependencies first
	Warnings []graph.Issue // unresolved declarations that proved irrelevant

	reaches mapset.Set[string]
}

// Affected returns the names of all packages with plans, dependencies first.
func (r *Resolution) Affected() []string {
	names := make([]string, len(r.Plans))
	for i, p := range r.Plans {
		names[i] = p.Package.Name
	}
	return names
}

// Reaches reports whether the named package reaches a leaf. Leaves reach
// themselves.
func (r *Resolution) Reaches(name string) bool { return r.reaches.Contains(name) }

// Marks returns highlight sets for graph exports: the leaves and the
// affected packages.
func (r *Resolution) Marks() graph.Marks {
	affected := mapset.NewThreadUnsafeSet[string]()
	for _, p := range r.Plans {
		affected.Add(p.Package.Name)
	}
	return graph.Marks{
		Leaves:   mapset.NewThreadUnsafeSet(r.Leaves...),
		Affected: affected,
	}
}

// Resolve computes propagation plans for a workspace graph.
//
// Packages are visited in the given dependencies-first order. A package is
// in scope when it owns a leaf feature or when any of its normal or build
// dependencies is in scope. Each in-scope package other than the leaves
// gets one forwarding reference per distinct manifest-visible dependency
// name whose target is in scope, so a diamond contributes one reference per
// direct edge rather than one per path. Leaves are never planned.
//
// Unresolved dependency declarations recorded by [graph.Build] abort the
// run with a GRAPH_ERROR when they could change the outcome: either the
// declaring package is in scope, or the declaration points at a package
// that reaches a leaf. Irrelevant ones are returned as warnings.
func Resolve(g *graph.Graph, order []string, cfg Config) (*Resolution, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	leaves, err := findLeaves(g, cfg.Leaves)
	if err != nil {
		return nil, err
	}

	res := &Resolution{
		Aspect:  cfg.Name,
		Leaves:  sortedNames(leaves),
		reaches: mapset.NewThreadUnsafeSet[string](),
	}

	for _, name := range order {
		if leaves.Contains(name) {
			res.reaches.Add(name)
			continue
		}
		node, ok := g.Node(name)
		if !ok || node.Pkg == nil {
			continue
		}

		seen := mapset.NewThreadUnsafeSet[string]()
		var refs []string
		directLeaf := false
		for _, e := range g.Dependencies(name) {
			if !e.Propagates() || !res.reaches.Contains(e.To) {
				continue
			}
			ref := e.Name + "/" + cfg.Name
			if seen.Add(ref) {
				refs = append(refs, ref)
			}
			if leaves.Contains(e.To) {
				directLeaf = true
			}
		}
		if len(refs) == 0 {
			continue
		}

		res.reaches.Add(name)
		plan := Plan{Package: node.Pkg, Feature: cfg.Name, Required: refs, Sort: cfg.Sort}
		if directLeaf && len(cfg.ExtraParams) > 0 {
			plan.Extras = slices.Clone(cfg.ExtraParams)
		}
		res.Plans = append(res.Plans, plan)
	}

	for _, issue := range g.Issues() {
		if res.reaches.Contains(issue.Package) ||
			(issue.Target != "" && res.reaches.Contains(issue.Target)) {
			return nil, errors.New(errors.ErrCodeGraph, "unresolved dependency: %s", issue)
		}
		res.Warnings = append(res.Warnings, issue)
	}

	return res, nil
}

// findLeaves matches the configured leaf specs against the graph. Qualified
// specs must name a workspace member owning the feature; unqualified specs
// match every member owning it.
func findLeaves(g *graph.Graph, specs []LeafSpec) (mapset.Set[string], error) {
	leaves := mapset.NewThreadUnsafeSet[string]()
	for _, spec := range specs {
		if spec.Qualified() {
			node, ok := g.Node(spec.Package)
			if !ok {
				return nil, errors.New(errors.ErrCodeLeafNotFound,
					"leaf package %q not found in workspace", spec.Package)
			}
			if node.External {
				return nil, errors.New(errors.ErrCodeLeafNotFound,
					"leaf package %q is not a workspace member", spec.Package)
			}
			if !node.Pkg.HasFeature(spec.Feature) {
				return nil, errors.New(errors.ErrCodeLeafNotFound,
					"package %q has no feature %q", spec.Package, spec.Feature)
			}
			leaves.Add(spec.Package)
			continue
		}

		found := false
		for _, id := range g.MemberIDs() {
			node, _ := g.Node(id)
			if node.Pkg.HasFeature(spec.Feature) {
				leaves.Add(id)
				found = true
			}
		}
		if !found {
			return nil, errors.New(errors.ErrCodeLeafNotFound,
				"no workspace member declares feature %q", spec.Feature)
		}
	}
	return leaves, nil
}

func sortedNames(s mapset.Set[string]) []string {
	names := s.ToSlice()
	slices.Sort(names)
	return names
}
