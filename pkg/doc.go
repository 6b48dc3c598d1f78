// Package pkg provides the core libraries for aspector feature-aspect
// propagation.
//
// # Overview
//
// An aspect feature is a workspace-wide cargo feature, like enable-tracing,
// that is owned by one leaf crate and must be declared and forwarded by every
// crate that transitively depends on it. Aspector keeps those forwarding
// chains complete. The pkg directory is organized into five areas:
//
//  1. [workspace] - Workspace metadata (cargo metadata or manifest scanning)
//  2. [graph] - Dependency graph, topological order, DOT/JSON/SVG export
//  3. [aspect] - Aspect configuration and propagation resolution
//  4. [manifest] - Format-preserving TOML edits and atomic writes
//  5. [pipeline] - Orchestration (load → resolve → patch → write/verify)
//
// # Architecture
//
// The typical data flow through aspector:
//
//	Cargo workspace
//	         ↓
//	    [workspace] package (load members and dependencies)
//	         ↓
//	    [graph] package (member graph + deps-first order)
//	         ↓
//	    [aspect] package (plan forwarding entries per member)
//	         ↓
//	    [manifest] package (patch [features] arrays in place)
//	         ↓
//	    updated Cargo.toml files / dry-run report / verify result
//
// # Quick Start
//
// Propagate a leaf feature through a workspace:
//
//	import (
//	    "context"
//	    "github.com/aspector/aspector/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(nil)
//	result, err := runner.Execute(context.Background(), pipeline.Options{
//	    LeafFeatures: []string{"logging/enable-tracing"},
//	    ManifestPath: "path/to/Cargo.toml",
//	})
//	if err != nil {
//	    // handle error
//	}
//	for _, name := range result.ChangedPackages() {
//	    fmt.Println("updated", name)
//	}
//
// # Main Packages
//
// [workspace] - Workspace loading. CargoLoader shells out to cargo metadata
// for exact resolution; ScanLoader parses the member manifests directly and
// needs no cargo on PATH.
//
// [graph] - Directed graph over workspace members with stable, name-sorted
// deterministic iteration. Provides cycle detection, a deps-first
// topological order, and DOT, JSON, and SVG exports.
//
// [aspect] - The propagation algorithm. Walks members deps-first, finds the
// set that reaches a leaf, and plans one forwarding entry per direct
// dependency edge on those paths, using manifest-visible dependency names.
//
// [manifest] - TOML editing built on tomledit. Edits touch exactly one
// [features] array and leave formatting, comments, and unrelated entries
// byte-for-byte intact. Writes are atomic via a temp file and rename.
//
// [pipeline] - One-shot orchestration shared by all commands. The same
// computed plan drives apply, dry-run, and verify, so the three modes can
// never disagree about what would change.
//
// [errors] - Coded errors with user-facing messages, plus input validation
// shared across packages.
//
// [buildinfo] - Build-time version information set via ldflags.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/aspect/...    # Specific package
//
// [workspace]: https://pkg.go.dev/github.com/aspector/aspector/pkg/workspace
// [graph]: https://pkg.go.dev/github.com/aspector/aspector/pkg/graph
// [aspect]: https://pkg.go.dev/github.com/aspector/aspector/pkg/aspect
// [manifest]: https://pkg.go.dev/github.com/aspector/aspector/pkg/manifest
// [pipeline]: https://pkg.go.dev/github.com/aspector/aspector/pkg/pipeline
// [errors]: https://pkg.go.dev/github.com/aspector/aspector/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/aspector/aspector/pkg/buildinfo
package pkg
