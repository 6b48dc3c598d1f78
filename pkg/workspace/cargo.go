package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/aspector/aspector/pkg/errors"
)

// CargoOptions configures the `cargo metadata` invocation.
// All fields are passed through to cargo unchanged.
type CargoOptions struct {
	ManifestPath string // --manifest-path (empty: cargo searches from the working directory)
	Locked       bool   // --locked
	Offline      bool   // --offline
}

// CargoLoader loads workspace metadata by running `cargo metadata`.
//
// The loader first asks for fully resolved metadata (--all-features). If that
// fails, for example because the lockfile cannot be produced offline, it
// retries with --no-deps, which still yields every workspace member and its
// declared dependencies.
type CargoLoader struct {
	opts CargoOptions
	bin  string
}

// NewCargoLoader creates a loader invoking the `cargo` binary from PATH.
func NewCargoLoader(opts CargoOptions) *CargoLoader {
	return &CargoLoader{opts: opts, bin: "cargo"}
}

// Available reports whether the cargo binary can be found on PATH.
func (l *CargoLoader) Available() bool {
	_, err := exec.LookPath(l.bin)
	return err == nil
}

// Load implements Loader.
func (l *CargoLoader) Load(ctx context.Context) (*Workspace, error) {
	meta, err := l.metadata(ctx, true)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		meta, err = l.metadata(ctx, false)
		if err != nil {
			return nil, err
		}
	}
	return fromMetadata(meta)
}

// metadata runs a single `cargo metadata` invocation and decodes its output.
func (l *CargoLoader) metadata(ctx context.Context, withDeps bool) (*cargoMetadata, error) {
	args := []string{"metadata", "--format-version", "1", "--all-features"}
	if !withDeps {
		args = append(args, "--no-deps")
	}
	if l.opts.ManifestPath != "" {
		args = append(args, "--manifest-path", l.opts.ManifestPath)
	}
	if l.opts.Locked {
		args = append(args, "--locked")
	}
	if l.opts.Offline {
		args = append(args, "--offline")
	}

	cmd := exec.CommandContext(ctx, l.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadata, err, "cargo metadata: stdout pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadata, err, "cargo metadata: start")
	}

	var meta cargoMetadata
	decodeErr := json.NewDecoder(out).Decode(&meta)
	waitErr := cmd.Wait()
	if waitErr != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadata, waitErr, "cargo metadata: %s", firstStderrLine(&stderr))
	}
	if decodeErr != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadata, decodeErr, "cargo metadata: decode output")
	}
	return &meta, nil
}

// firstStderrLine extracts the most useful line from cargo's stderr for
// error reporting. Cargo prefixes its diagnostics with "error:".
func firstStderrLine(buf *bytes.Buffer) string {
	for _, line := range strings.Split(buf.String(), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "error") {
			return line
		}
	}
	if line, _, found := strings.Cut(strings.TrimSpace(buf.String()), "\n"); found || line != "" {
		return line
	}
	return "no diagnostic output"
}

// =============================================================================
// cargo metadata JSON format (format-version 1)
// =============================================================================

type cargoMetadata struct {
	Packages         []cargoPackage `json:"packages"`
	WorkspaceMembers []string       `json:"workspace_members"`
	WorkspaceRoot    string         `json:"workspace_root"`
}

type cargoPackage struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Version      string              `json:"version"`
	ManifestPath string              `json:"manifest_path"`
	Dependencies []cargoDependency   `json:"dependencies"`
	Features     map[string][]string `json:"features"`
}

type cargoDependency struct {
	Name     string  `json:"name"`
	Rename   *string `json:"rename"`
	Kind     *string `json:"kind"` // null, "dev", or "build"
	Optional bool    `json:"optional"`
	Path     *string `json:"path"`
}

// fromMetadata converts decoded cargo output into a Workspace, keeping only
// workspace members. Non-member packages (registry dependencies) are external
// to propagation and dropped here.
func fromMetadata(meta *cargoMetadata) (*Workspace, error) {
	members := mapset.NewThreadUnsafeSet(meta.WorkspaceMembers...)

	var pkgs []*Package
	for _, cp := range meta.Packages {
		if !members.Contains(cp.ID) {
			continue
		}
		pkg := &Package{
			ID:           cp.ID,
			Name:         cp.Name,
			Version:      cp.Version,
			ManifestPath: cp.ManifestPath,
			Features:     cp.Features,
		}
		for _, cd := range cp.Dependencies {
			dep := Dependency{
				Name:     cd.Name,
				Kind:     parseDepKind(cd.Kind),
				Optional: cd.Optional,
			}
			if cd.Rename != nil && *cd.Rename != cd.Name {
				dep.Rename = *cd.Rename
			}
			if cd.Path != nil {
				dep.Path = *cd.Path
			}
			pkg.Dependencies = append(pkg.Dependencies, dep)
		}
		pkgs = append(pkgs, pkg)
	}

	return New(meta.WorkspaceRoot, pkgs)
}

// parseDepKind maps cargo's dependency kind field (null for normal) to DepKind.
func parseDepKind(kind *string) DepKind {
	if kind == nil {
		return KindNormal
	}
	switch *kind {
	case "dev":
		return KindDev
	case "build":
		return KindBuild
	default:
		return KindNormal
	}
}
