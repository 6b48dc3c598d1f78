package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/goccy/go-graphviz"

	"github.com/aspector/aspector/pkg/errors"
	"github.com/aspector/aspector/pkg/workspace"
)

// =============================================================================
// Serialization Types
// =============================================================================

// Export is the serialization format for dependency graphs, used by the
// graph command for JSON output and as the source for DOT rendering.
type Export struct {
	Nodes []ExportNode `json:"nodes"`
	Edges []ExportEdge `json:"edges"`
}

// ExportNode is a serialized graph node.
type ExportNode struct {
	ID       string `json:"id"`
	Version  string `json:"version,omitempty"`
	External bool   `json:"external,omitempty"`
	Leaf     bool   `json:"leaf,omitempty"`
	Affected bool   `json:"affected,omitempty"`
}

// ExportEdge is a serialized dependency edge. Name is included only when the
// dependency is renamed, Kind only when it is not a normal dependency.
type ExportEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Name string `json:"name,omitempty"`
	Kind string `json:"kind,omitempty"`
}

// Marks selects nodes to highlight in exports. The zero value highlights
// nothing; either set may be nil.
type Marks struct {
	Leaves   mapset.Set[string] // Packages owning the propagated feature
	Affected mapset.Set[string] // Packages receiving forwarding entries
}

func (m Marks) leaf(id string) bool     { return m.Leaves != nil && m.Leaves.Contains(id) }
func (m Marks) affected(id string) bool { return m.Affected != nil && m.Affected.Contains(id) }

// =============================================================================
// Export Construction
// =============================================================================

// NewExport converts a graph to its serialization format. Nodes are sorted
// by ID, edges keep insertion order.
func NewExport(g *Graph, marks Marks) Export {
	ex := Export{
		Nodes: make([]ExportNode, 0, g.NodeCount()),
		Edges: make([]ExportEdge, 0, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		en := ExportNode{
			ID:       n.ID,
			External: n.External,
			Leaf:     marks.leaf(n.ID),
			Affected: marks.affected(n.ID),
		}
		if n.Pkg != nil {
			en.Version = n.Pkg.Version
		}
		ex.Nodes = append(ex.Nodes, en)
	}
	for _, e := range g.Edges() {
		ee := ExportEdge{From: e.From, To: e.To}
		if e.Name != e.To {
			ee.Name = e.Name
		}
		if e.Kind != workspace.KindNormal {
			ee.Kind = e.Kind.String()
		}
		ex.Edges = append(ex.Edges, ee)
	}
	return ex
}

// ToJSON serializes the graph as indented JSON.
func ToJSON(g *Graph, marks Marks) ([]byte, error) {
	data, err := json.MarshalIndent(NewExport(g, marks), "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "marshal graph")
	}
	return append(data, '\n'), nil
}

// =============================================================================
// DOT / SVG Rendering
// =============================================================================

// ToDOT converts the graph to Graphviz DOT format. Workspace members are
// boxes, external dependencies are dashed grey ellipses, and dev edges are
// drawn dashed. Marked leaves get a double border and marked affected nodes
// a tinted fill. The resulting DOT string can be rendered with [RenderSVG].
func ToDOT(g *Graph, marks Marks) string {
	var buf bytes.Buffer
	buf.WriteString("digraph workspace {\n")
	buf.WriteString("  rankdir=BT;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n, marks), ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		attrs := edgeAttrs(e)
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n *Node, marks Marks) []string {
	label := n.ID
	if n.Pkg != nil && n.Pkg.Version != "" {
		label = n.ID + "\n" + n.Pkg.Version
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.External:
		attrs = append(attrs, "shape=ellipse", "style=\"dashed,filled\"", "fillcolor=whitesmoke", "fontcolor=grey40")
	case marks.leaf(n.ID):
		attrs = append(attrs, "peripheries=2", "fillcolor=lightyellow")
	case marks.affected(n.ID):
		attrs = append(attrs, "fillcolor=lightblue")
	}
	return attrs
}

func edgeAttrs(e Edge) []string {
	var attrs []string
	if e.Name != e.To {
		attrs = append(attrs, fmt.Sprintf("label=%q", e.Name), "fontsize=10")
	}
	switch e.Kind {
	case workspace.KindDev:
		attrs = append(attrs, "style=dashed", "color=grey60")
	case workspace.KindBuild:
		attrs = append(attrs, "style=dotted")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
