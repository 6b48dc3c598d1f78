// Package workspace loads resolved Cargo workspace metadata.
//
// A workspace is a set of member packages with their manifest locations,
// declared dependencies, and feature tables. Two loaders are provided:
//
//   - CargoLoader shells out to `cargo metadata` and decodes its JSON output.
//     This is the default and matches what cargo itself resolves.
//   - ScanLoader reads the workspace manifests directly. It needs no cargo
//     binary and is used as a fallback and for hermetic tests.
//
// Both produce the same Workspace shape, so everything downstream (graph
// construction, aspect resolution, manifest patching) is loader-agnostic.
package workspace

import (
	"context"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/aspector/aspector/pkg/errors"
)

// DepKind classifies a dependency declaration by its manifest table.
type DepKind int

const (
	// KindNormal is a [dependencies] entry.
	KindNormal DepKind = iota
	// KindDev is a [dev-dependencies] entry. Dev edges never participate in
	// feature propagation: a [features] array cannot reference them.
	KindDev
	// KindBuild is a [build-dependencies] entry.
	KindBuild
)

// String returns the manifest table name for the kind.
func (k DepKind) String() string {
	switch k {
	case KindDev:
		return "dev"
	case KindBuild:
		return "build"
	default:
		return "normal"
	}
}

// Dependency is a single dependency declaration of a package.
type Dependency struct {
	Name     string  // published package name
	Rename   string  // manifest-visible alias, empty if not renamed
	Kind     DepKind // declaring table
	Optional bool
	Path     string // absolute path for path dependencies, empty otherwise
}

// ManifestName returns the name under which the dependency is visible inside
// the declaring manifest. Feature forwarding entries must use this name, not
// the published one.
func (d Dependency) ManifestName() string {
	if d.Rename != "" {
		return d.Rename
	}
	return d.Name
}

// Package is a workspace member.
type Package struct {
	ID           string // loader-specific unique identifier
	Name         string
	Version      string
	ManifestPath string // absolute path to the member's Cargo.toml
	Dependencies []Dependency
	Features     map[string][]string
}

// HasFeature reports whether the package declares the named feature.
func (p *Package) HasFeature(name string) bool {
	_, ok := p.Features[name]
	return ok
}

// FeatureNames returns the declared feature names in sorted order.
func (p *Package) FeatureNames() []string {
	names := make([]string, 0, len(p.Features))
	for name := range p.Features {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DirectDeps returns the package's dependencies of the given kinds, in
// declaration order.
func (p *Package) DirectDeps(kinds ...DepKind) []Dependency {
	var out []Dependency
	for _, d := range p.Dependencies {
		if slices.Contains(kinds, d.Kind) {
			out = append(out, d)
		}
	}
	return out
}

// Workspace is a loaded Cargo workspace.
//
// Member order follows the loader (cargo metadata order or scan order) and is
// preserved so diagnostics stay stable across runs.
type Workspace struct {
	Root     string // workspace root directory
	packages []*Package
	byName   map[string]*Package
}

// New builds a Workspace from loaded members.
// Returns a GRAPH_ERROR if two members share a name, since downstream
// resolution identifies packages by name.
func New(root string, packages []*Package) (*Workspace, error) {
	byName := make(map[string]*Package, len(packages))
	for _, p := range packages {
		if p.Name == "" {
			return nil, errors.New(errors.ErrCodeGraph, "workspace member at %s has no name", p.ManifestPath)
		}
		if prev, exists := byName[p.Name]; exists {
			return nil, errors.New(errors.ErrCodeGraph, "duplicate workspace member %q (%s and %s)", p.Name, prev.ManifestPath, p.ManifestPath)
		}
		byName[p.Name] = p
	}
	return &Workspace{Root: root, packages: packages, byName: byName}, nil
}

// Packages returns all members in load order.
func (w *Workspace) Packages() []*Package { return w.packages }

// Package returns the member with the given name.
func (w *Workspace) Package(name string) (*Package, bool) {
	p, ok := w.byName[name]
	return p, ok
}

// Len returns the number of members.
func (w *Workspace) Len() int { return len(w.packages) }

// MemberNames returns the set of member package names.
func (w *Workspace) MemberNames() mapset.Set[string] {
	names := mapset.NewThreadUnsafeSet[string]()
	for _, p := range w.packages {
		names.Add(p.Name)
	}
	return names
}

// Loader produces a Workspace from some metadata source.
type Loader interface {
	// Load resolves the workspace. Implementations honor ctx cancellation
	// for any subprocess or filesystem traversal they perform.
	Load(ctx context.Context) (*Workspace, error)
}
