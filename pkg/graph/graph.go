package graph

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aspector/aspector/pkg/errors"
	"github.com/aspector/aspector/pkg/workspace"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is
	// empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = stderrors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists in the graph. Node IDs must be unique.
	ErrDuplicateNodeID = stderrors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the From node
	// does not exist in the graph.
	ErrUnknownSourceNode = stderrors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the To node
	// does not exist in the graph.
	ErrUnknownTargetNode = stderrors.New("unknown target node")
)

// Node represents a package in the dependency graph. Workspace members carry
// a pointer to their package data; external dependencies are terminal nodes
// with no package data and no outgoing edges.
type Node struct {
	ID       string             // Package name (unique across the graph)
	Pkg      *workspace.Package // Member package data, nil for external nodes
	External bool               // True when the package is not a workspace member
}

// Edge represents a declared dependency between two packages. From depends
// on To. Name is the name under which the dependency appears in the From
// package's manifest, which differs from To when the dependency is renamed.
type Edge struct {
	From string
	To   string
	Name string
	Kind workspace.DepKind
}

// Propagates reports whether the edge participates in feature propagation.
// Dev dependencies do not: Cargo allows dev-dependency cycles and features
// are never forwarded across them.
func (e Edge) Propagates() bool { return e.Kind != workspace.KindDev }

// Issue records a declared dependency that could not be resolved to a graph
// node. Issues are not immediately fatal; callers escalate them when the
// affected package is relevant to the operation being performed.
type Issue struct {
	Package string // Member that declares the dependency
	Dep     string // Manifest-visible dependency name
	Target  string // Real package name the declaration points at, if known
	Reason  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: dependency %q: %s", i.Package, i.Dep, i.Reason)
}

// Graph is the directed dependency graph of a Cargo workspace. Nodes are
// packages, edges point from a package to the packages it depends on.
//
// The zero value is not usable - use [New] or [Build].
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	nodes    map[string]*Node
	edges    []Edge
	outgoing map[string][]int // nodeID -> indices into edges
	incoming map[string][]int // nodeID -> indices into edges
	issues   []Issue
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]int),
		incoming: make(map[string][]int),
	}
}

// AddNode adds a node to the graph. Returns ErrInvalidNodeID if the node ID
// is empty, or ErrDuplicateNodeID if a node with the same ID already exists.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	g.nodes[n.ID] = &n
	return nil
}

// AddEdge adds a directed edge between two existing nodes. Returns
// ErrUnknownSourceNode or ErrUnknownTargetNode if an endpoint is missing.
// Multiple edges between the same nodes are allowed; a package may depend
// on the same target under several names or kinds.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := g.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	idx := len(g.edges)
	g.edges = append(g.edges, e)
	g.outgoing[e.From] = append(g.outgoing[e.From], idx)
	g.incoming[e.To] = append(g.incoming[e.To], idx)
	return nil
}

// Node returns the node with the given ID and true, or nil and false if not
// found.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes sorted by ID.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, func(a, b *Node) int { return strings.Compare(a.ID, b.ID) })
	return nodes
}

// MemberIDs returns the IDs of all workspace member nodes in ascending order.
func (g *Graph) MemberIDs() []string {
	var ids []string
	for id, n := range g.nodes {
		if !n.External {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Dependencies returns the outgoing edges of a node in declaration order.
// Returns nil if the node has no dependencies or does not exist.
func (g *Graph) Dependencies(id string) []Edge {
	idxs := g.outgoing[id]
	if len(idxs) == 0 {
		return nil
	}
	deps := make([]Edge, len(idxs))
	for i, idx := range idxs {
		deps[i] = g.edges[idx]
	}
	return deps
}

// Dependents returns the incoming edges of a node, grouped by declaring
// package in edge insertion order. Returns nil if nothing depends on the
// node or it does not exist.
func (g *Graph) Dependents(id string) []Edge {
	idxs := g.incoming[id]
	if len(idxs) == 0 {
		return nil
	}
	deps := make([]Edge, len(idxs))
	for i, idx := range idxs {
		deps[i] = g.edges[idx]
	}
	return deps
}

// Issues returns the unresolved dependency declarations recorded by [Build].
func (g *Graph) Issues() []Issue { return slices.Clone(g.issues) }

// Build constructs the dependency graph of a workspace. Every member becomes
// a node, and every declared dependency becomes an edge. Dependencies on
// packages outside the workspace become terminal external nodes keyed by the
// real package name.
//
// A path dependency whose name matches a workspace member but whose path
// points elsewhere is ambiguous: matching by name would connect the wrong
// packages. Build records an [Issue] for it and adds no edge, leaving the
// caller to decide whether that matters.
func Build(ws *workspace.Workspace) (*Graph, error) {
	g := New()
	for _, pkg := range ws.Packages() {
		if err := g.AddNode(Node{ID: pkg.Name, Pkg: pkg}); err != nil {
			return nil, errors.Wrap(errors.ErrCodeGraph, err, "add package %q", pkg.Name)
		}
	}

	for _, pkg := range ws.Packages() {
		for _, dep := range pkg.Dependencies {
			if dep.Name == "" {
				g.issues = append(g.issues, Issue{
					Package: pkg.Name,
					Dep:     dep.ManifestName(),
					Reason:  "dependency has no package name",
				})
				continue
			}

			target, isMember := ws.Package(dep.Name)
			if isMember && !pathMatches(dep, target) {
				g.issues = append(g.issues, Issue{
					Package: pkg.Name,
					Dep:     dep.ManifestName(),
					Target:  dep.Name,
					Reason: fmt.Sprintf("path %q does not lead to workspace member %q",
						dep.Path, dep.Name),
				})
				continue
			}
			if !isMember {
				if _, ok := g.nodes[dep.Name]; !ok {
					if err := g.AddNode(Node{ID: dep.Name, External: true}); err != nil {
						return nil, errors.Wrap(errors.ErrCodeGraph, err, "add external %q", dep.Name)
					}
				}
			}

			err := g.AddEdge(Edge{From: pkg.Name, To: dep.Name, Name: dep.ManifestName(), Kind: dep.Kind})
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeGraph, err,
					"edge %s -> %s", pkg.Name, dep.Name)
			}
		}
	}
	return g, nil
}

// pathMatches reports whether a dependency's declared path, if any, leads to
// the directory holding the target member's manifest.
func pathMatches(dep workspace.Dependency, target *workspace.Package) bool {
	if dep.Path == "" {
		return true
	}
	return filepath.Clean(dep.Path) == filepath.Dir(target.ManifestPath)
}

// Validate checks graph integrity and returns nil if valid. It verifies that
// all edges connect existing nodes and that the propagation subgraph (normal
// and build edges between members) is acyclic. Dev edges are exempt because
// Cargo permits dev-dependency cycles.
//
// Returns an error with [errors.ErrCodeGraph] for a dangling edge and
// [errors.ErrCodeCycle] for a cycle, naming the packages on the cycle.
func (g *Graph) Validate() error {
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return errors.New(errors.ErrCodeGraph, "edge references unknown package %q", e.From)
		}
		if _, ok := g.nodes[e.To]; !ok {
			return errors.New(errors.ErrCodeGraph, "edge references unknown package %q", e.To)
		}
	}
	return g.detectCycles()
}

func (g *Graph) detectCycles() error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(g.nodes))
	var cycle []string

	var stack []string
	var dfs func(id string) bool
	dfs = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, idx := range g.outgoing[id] {
			e := g.edges[idx]
			if !e.Propagates() {
				continue
			}
			switch color[e.To] {
			case white:
				if dfs(e.To) {
					return true
				}
			case gray:
				start := slices.Index(stack, e.To)
				cycle = slices.Clone(stack[start:])
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, id := range g.MemberIDs() {
		if color[id] == white && dfs(id) {
			cycle = append(cycle, cycle[0])
			return errors.New(errors.ErrCodeCycle,
				"dependency cycle: %s", strings.Join(cycle, " -> "))
		}
	}
	return nil
}
