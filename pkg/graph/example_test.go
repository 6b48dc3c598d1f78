package graph_test

import (
	"fmt"

	"github.com/aspector/aspector/pkg/graph"
	"github.com/aspector/aspector/pkg/workspace"
)

func ExampleBuild() {
	// A small workspace: cli depends on core, core depends on util.
	pkgs := []*workspace.Package{
		{Name: "cli", ManifestPath: "/ws/cli/Cargo.toml", Dependencies: []workspace.Dependency{{Name: "core"}}},
		{Name: "core", ManifestPath: "/ws/core/Cargo.toml", Dependencies: []workspace.Dependency{{Name: "util"}}},
		{Name: "util", ManifestPath: "/ws/util/Cargo.toml"},
	}
	ws, _ := workspace.New("/ws", pkgs)

	g, _ := graph.Build(ws)
	fmt.Println("nodes:", g.NodeCount())
	fmt.Println("edges:", g.EdgeCount())
	// Output:
	// nodes: 3
	// edges: 2
}

func ExampleGraph_TopoOrder() {
	pkgs := []*workspace.Package{
		{Name: "cli", ManifestPath: "/ws/cli/Cargo.toml", Dependencies: []workspace.Dependency{{Name: "core"}}},
		{Name: "core", ManifestPath: "/ws/core/Cargo.toml", Dependencies: []workspace.Dependency{{Name: "util"}}},
		{Name: "util", ManifestPath: "/ws/util/Cargo.toml"},
	}
	ws, _ := workspace.New("/ws", pkgs)
	g, _ := graph.Build(ws)

	order, _ := g.TopoOrder()
	fmt.Println(order)
	// Output:
	// [util core cli]
}
