package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aspector/aspector/pkg/errors"
	"github.com/aspector/aspector/pkg/graph"
)

func TestValidateGraphFormat(t *testing.T) {
	tests := []struct {
		format string
		ok     bool
	}{
		{"dot", true},
		{"json", true},
		{"svg", true},
		{"png", false},
		{"", false},
		{"DOT", false}, // case-sensitive
	}

	for _, tt := range tests {
		err := validateGraphFormat(tt.format)
		if (err == nil) != tt.ok {
			t.Errorf("validateGraphFormat(%q) error = %v, want ok = %v", tt.format, err, tt.ok)
		}
	}
}

func TestGraphFlags(t *testing.T) {
	cmd := newTestCLI().graphCommand()

	for _, name := range []string{
		"format", "output", "leaf-feature", "name",
		"manifest-path", "locked", "offline", "scan",
	} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("graph is missing flag --%s", name)
		}
	}

	if got := cmd.Flags().Lookup("format").DefValue; got != formatDOT {
		t.Errorf("default format = %q, want %q", got, formatDOT)
	}
}

func TestGraphInvalidFormat(t *testing.T) {
	err := runCommand(t, "graph", "--format", "png")
	if err == nil {
		t.Fatal("unknown format should be rejected")
	}
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error code = %v, want %v", err, errors.ErrCodeInvalidInput)
	}
}

func TestGraphDOTEndToEnd(t *testing.T) {
	root := writeWorkspace(t, chainManifests())
	ws := filepath.Join(root, "Cargo.toml")
	out := filepath.Join(t.TempDir(), "workspace.dot")

	err := runCommand(t, "graph", "--scan", "--manifest-path", ws, "-o", out)
	if err != nil {
		t.Fatalf("graph: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	dot := string(data)
	if !strings.HasPrefix(dot, "digraph workspace {") {
		t.Errorf("output should be DOT, got %q", dot[:min(40, len(dot))])
	}
	for _, member := range []string{"logging", "foo", "bar"} {
		if !strings.Contains(dot, "\""+member+"\"") {
			t.Errorf("DOT output is missing member %q", member)
		}
	}
}

func TestGraphJSONWithMarks(t *testing.T) {
	root := writeWorkspace(t, chainManifests())
	ws := filepath.Join(root, "Cargo.toml")
	out := filepath.Join(t.TempDir(), "workspace.json")

	err := runCommand(t, "graph", "--scan", "--manifest-path", ws,
		"--leaf-feature", "logging/enable-tracing", "-f", "json", "-o", out)
	if err != nil {
		t.Fatalf("graph: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var export graph.Export
	if err := json.Unmarshal(data, &export); err != nil {
		t.Fatalf("output should be JSON: %v", err)
	}

	marks := map[string]graph.ExportNode{}
	for _, n := range export.Nodes {
		marks[n.ID] = n
	}
	if !marks["logging"].Leaf {
		t.Error("logging should be marked as leaf")
	}
	for _, affected := range []string{"foo", "bar"} {
		if !marks[affected].Affected {
			t.Errorf("%s should be marked as affected", affected)
		}
	}
	if marks["logging"].Affected {
		t.Error("the leaf itself is not affected")
	}
}
