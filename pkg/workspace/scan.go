package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/aspector/aspector/pkg/errors"
)

// ScanLoader loads a workspace by parsing its manifests directly, without
// invoking cargo. Member globs, `package = ` renames, path dependencies, and
// `workspace = true` inheritance are resolved; target-specific dependency
// tables are not.
//
// Dependencies are emitted per table sorted by manifest-visible name, which
// matches the ordering `cargo metadata` produces.
type ScanLoader struct {
	manifestPath string
}

// NewScanLoader creates a scanner rooted at the given Cargo.toml.
// An empty path means ./Cargo.toml.
func NewScanLoader(manifestPath string) *ScanLoader {
	if manifestPath == "" {
		manifestPath = "Cargo.toml"
	}
	return &ScanLoader{manifestPath: manifestPath}
}

// Load implements Loader.
func (l *ScanLoader) Load(ctx context.Context) (*Workspace, error) {
	rootPath, err := filepath.Abs(l.manifestPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", l.manifestPath)
	}
	root, err := readManifest(rootPath)
	if err != nil {
		return nil, err
	}
	rootDir := filepath.Dir(rootPath)

	memberDirs, err := l.memberDirs(root, rootDir)
	if err != nil {
		return nil, err
	}

	var wsDeps map[string]any
	if root.Workspace != nil {
		wsDeps = root.Workspace.Dependencies
	}

	var pkgs []*Package
	for _, dir := range memberDirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		manifestPath := filepath.Join(dir, "Cargo.toml")
		mf := root
		if dir != rootDir {
			if mf, err = readManifest(manifestPath); err != nil {
				return nil, err
			}
		}
		if mf.Package == nil {
			// Virtual workspace roots declare [workspace] without [package].
			continue
		}
		pkg, err := memberPackage(mf, manifestPath, dir, rootDir, wsDeps)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}

	return New(rootDir, pkgs)
}

// memberDirs expands the [workspace] member globs minus excludes.
// A manifest without [workspace] is a single-member workspace.
func (l *ScanLoader) memberDirs(root *manifestFile, rootDir string) ([]string, error) {
	if root.Workspace == nil {
		if root.Package == nil {
			return nil, errors.New(errors.ErrCodeManifestParse, "%s has neither [package] nor [workspace]", filepath.Join(rootDir, "Cargo.toml"))
		}
		return []string{rootDir}, nil
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	var dirs []string
	add := func(dir string) {
		if seen.Add(dir) {
			dirs = append(dirs, dir)
		}
	}

	if root.Package != nil {
		add(rootDir)
	}

	excluded := mapset.NewThreadUnsafeSet[string]()
	for _, e := range root.Workspace.Exclude {
		excluded.Add(filepath.Clean(filepath.Join(rootDir, e)))
	}

	for _, pattern := range root.Workspace.Members {
		matches, err := filepath.Glob(filepath.Join(rootDir, pattern))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeManifestParse, err, "bad members pattern %q", pattern)
		}
		for _, m := range matches {
			m = filepath.Clean(m)
			if excluded.Contains(m) {
				continue
			}
			if fi, err := os.Stat(filepath.Join(m, "Cargo.toml")); err != nil || fi.IsDir() {
				continue
			}
			add(m)
		}
	}

	return dirs, nil
}

// memberPackage converts a decoded member manifest into a Package.
func memberPackage(mf *manifestFile, manifestPath, dir, rootDir string, wsDeps map[string]any) (*Package, error) {
	name := mf.Package.Name
	if name == "" {
		return nil, errors.New(errors.ErrCodeManifestParse, "%s: missing package name", manifestPath)
	}

	pkg := &Package{
		ID:           name,
		Name:         name,
		Version:      mf.Package.version(),
		ManifestPath: manifestPath,
		Features:     mf.Features,
	}

	tables := []struct {
		kind DepKind
		deps map[string]any
	}{
		{KindNormal, mf.Dependencies},
		{KindBuild, mf.BuildDependencies},
		{KindDev, mf.DevDependencies},
	}
	for _, table := range tables {
		aliases := make([]string, 0, len(table.deps))
		for alias := range table.deps {
			aliases = append(aliases, alias)
		}
		slices.Sort(aliases)
		for _, alias := range aliases {
			dep, err := parseDepSpec(alias, table.deps[alias], table.kind, dir, rootDir, wsDeps)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeManifestParse, err, "%s: dependency %q", manifestPath, alias)
			}
			pkg.Dependencies = append(pkg.Dependencies, dep)
		}
	}

	return pkg, nil
}

// parseDepSpec interprets a single dependency declaration. The spec is either
// a bare version string or an inline/regular table with package, path,
// optional, and workspace keys.
func parseDepSpec(alias string, spec any, kind DepKind, dir, rootDir string, wsDeps map[string]any) (Dependency, error) {
	dep := Dependency{Name: alias, Kind: kind}

	switch v := spec.(type) {
	case string:
		return dep, nil
	case map[string]any:
		if ws, _ := v["workspace"].(bool); ws {
			base, ok := wsDeps[alias]
			if !ok {
				return dep, fmt.Errorf("inherits from workspace but [workspace.dependencies] has no %q", alias)
			}
			inherited, err := parseDepSpec(alias, base, kind, rootDir, rootDir, nil)
			if err != nil {
				return dep, err
			}
			dep.Name = inherited.Name
			dep.Rename = inherited.Rename
			dep.Path = inherited.Path
			if opt, _ := v["optional"].(bool); opt {
				dep.Optional = true
			}
			return dep, nil
		}
		if pkgName, _ := v["package"].(string); pkgName != "" && pkgName != alias {
			dep.Name = pkgName
			dep.Rename = alias
		}
		if p, _ := v["path"].(string); p != "" {
			dep.Path = filepath.Clean(filepath.Join(dir, p))
		}
		if opt, _ := v["optional"].(bool); opt {
			dep.Optional = true
		}
		return dep, nil
	default:
		return dep, fmt.Errorf("unsupported dependency spec of type %T", spec)
	}
}

// readManifest reads and decodes a Cargo.toml.
func readManifest(path string) (*manifestFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "manifest %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeMetadata, err, "read %s", path)
	}

	var mf manifestFile
	if err := toml.Unmarshal(data, &mf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestParse, err, "parse %s", path)
	}
	return &mf, nil
}

// =============================================================================
// Cargo.toml decode types
// =============================================================================

type manifestFile struct {
	Package           *packageTable       `toml:"package"`
	Workspace         *workspaceTable     `toml:"workspace"`
	Dependencies      map[string]any      `toml:"dependencies"`
	DevDependencies   map[string]any      `toml:"dev-dependencies"`
	BuildDependencies map[string]any      `toml:"build-dependencies"`
	Features          map[string][]string `toml:"features"`
}

type packageTable struct {
	Name string `toml:"name"`
	// Version is any because members may inherit it: version.workspace = true.
	Version any `toml:"version"`
}

// version returns the literal version string, or "" when inherited.
func (p *packageTable) version() string {
	if s, ok := p.Version.(string); ok {
		return s
	}
	return ""
}

type workspaceTable struct {
	Members      []string       `toml:"members"`
	Exclude      []string       `toml:"exclude"`
	Dependencies map[string]any `toml:"dependencies"`
}
