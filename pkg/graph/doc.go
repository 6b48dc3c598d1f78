// Package graph builds the directed dependency graph of a Cargo workspace
// and derives the deterministic traversal order used for feature propagation.
//
// # Overview
//
// Feature propagation walks the workspace from the packages that depend on
// nothing up to the packages that depend on everything. This package turns a
// [workspace.Workspace] into that graph: one node per workspace member, one
// node per external dependency, and one edge per declared dependency. Edges
// carry the dependency kind (normal, dev, build) and the name under which the
// dependency appears in the depending package's manifest, which may differ
// from the real package name when the dependency is renamed.
//
// # Basic Usage
//
// Build a graph with [Build], check it with [Graph.Validate], and obtain the
// dependencies-first order with [Graph.TopoOrder]:
//
//	g, err := graph.Build(ws)
//	if err != nil { ... }
//	if err := g.Validate(); err != nil { ... }
//	order, err := g.TopoOrder()
//
// The order lists every workspace member after all of its workspace
// dependencies. Ties are broken by ascending package name, so the same
// workspace always produces the same order.
//
// # Dependency Kinds
//
// Normal and build dependencies participate in propagation, ordering, and
// cycle detection. Dev dependencies are recorded in the graph (they appear in
// exports) but are ignored by [Graph.TopoOrder] and [Graph.Validate], because
// Cargo permits dev-dependency cycles and features are not forwarded across
// dev edges.
//
// # Unresolved Dependencies
//
// A declared dependency that cannot be matched to a node (for example a path
// dependency whose path disagrees with the workspace member of the same name)
// is recorded as an [Issue] instead of failing the build. Callers decide
// whether an issue is fatal based on whether the affected package matters to
// the operation at hand.
//
// # Exports
//
// [ToJSON], [ToDOT], and [RenderSVG] serialize the graph for inspection.
// Exports include dev edges and external nodes, and can highlight a set of
// marked packages.
//
// Graph instances are not safe for concurrent use.
package graph
