package manifest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aspector/aspector/pkg/aspect"
	"github.com/aspector/aspector/pkg/workspace"
)

func plan(feature string, required, extras []string, sort bool) aspect.Plan {
	return aspect.Plan{
		Package:  &workspace.Package{Name: "foo"},
		Feature:  feature,
		Required: required,
		Extras:   extras,
		Sort:     sort,
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name        string
		manifest    string
		plan        aspect.Plan
		wantBefore  []string
		wantAfter   []string
		wantAdded   []string
		wantChanged bool
	}{
		{
			name:        "AppendMissing",
			manifest:    sampleManifest,
			plan:        plan("enable-tracing", []string{"logging/enable-tracing", "midware/enable-tracing"}, nil, false),
			wantBefore:  []string{"std", "logging/enable-tracing"},
			wantAfter:   []string{"std", "logging/enable-tracing", "midware/enable-tracing"},
			wantAdded:   []string{"midware/enable-tracing"},
			wantChanged: true,
		},
		{
			name:        "AlreadyComplete",
			manifest:    sampleManifest,
			plan:        plan("enable-tracing", []string{"logging/enable-tracing"}, nil, false),
			wantBefore:  []string{"std", "logging/enable-tracing"},
			wantAfter:   []string{"std", "logging/enable-tracing"},
			wantChanged: false,
		},
		{
			name:        "CreatesFeature",
			manifest:    "[package]\nname = \"foo\"\n",
			plan:        plan("unstable", []string{"core/unstable"}, nil, false),
			wantAfter:   []string{"core/unstable"},
			wantAdded:   []string{"core/unstable"},
			wantChanged: true,
		},
		{
			name:        "ExtrasAfterRequired",
			manifest:    "[features]\ntracing = []\n",
			plan:        plan("tracing", []string{"logging/tracing"}, []string{"dep:logging"}, false),
			wantBefore:  []string{},
			wantAfter:   []string{"logging/tracing", "dep:logging"},
			wantAdded:   []string{"logging/tracing", "dep:logging"},
			wantChanged: true,
		},
		{
			name:        "PreservesOrderAndDuplicates",
			manifest:    "[features]\nx = [\"zeta\", \"alpha\", \"zeta\"]\n",
			plan:        plan("x", []string{"beta"}, nil, false),
			wantBefore:  []string{"zeta", "alpha", "zeta"},
			wantAfter:   []string{"zeta", "alpha", "zeta", "beta"},
			wantAdded:   []string{"beta"},
			wantChanged: true,
		},
		{
			name:        "SortUnion",
			manifest:    "[features]\nx = [\"zeta\", \"alpha\", \"zeta\"]\n",
			plan:        plan("x", []string{"beta/x"}, []string{"dep:beta"}, true),
			wantBefore:  []string{"zeta", "alpha", "zeta"},
			wantAfter:   []string{"alpha", "beta/x", "dep:beta", "zeta"},
			wantAdded:   []string{"beta/x", "dep:beta"},
			wantChanged: true,
		},
		{
			name:        "SortAlreadyCanonical",
			manifest:    "[features]\nx = [\"alpha\", \"beta\"]\n",
			plan:        plan("x", []string{"beta"}, nil, true),
			wantBefore:  []string{"alpha", "beta"},
			wantAfter:   []string{"alpha", "beta"},
			wantChanged: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseSample(t, tt.manifest)
			patch, err := Compute(doc, tt.plan)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			if diff := cmp.Diff(tt.wantBefore, patch.Before); diff != "" {
				t.Errorf("Before mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantAfter, patch.After); diff != "" {
				t.Errorf("After mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantAdded, patch.Added); diff != "" {
				t.Errorf("Added mismatch (-want +got):\n%s", diff)
			}
			if patch.Changed() != tt.wantChanged {
				t.Errorf("Changed() = %v, want %v", patch.Changed(), tt.wantChanged)
			}
		})
	}
}

func TestComputeShapeError(t *testing.T) {
	doc := parseSample(t, "[features]\nx = \"oops\"\n")
	_, err := Compute(doc, plan("x", []string{"a"}, nil, false))
	if err == nil {
		t.Fatal("Compute() = nil, want shape error")
	}
}

func TestApplyUpdatesDocument(t *testing.T) {
	doc := parseSample(t, sampleManifest)
	patch, err := Compute(doc, plan("enable-tracing", []string{"logging/enable-tracing", "midware/enable-tracing"}, nil, false))
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	patch.Apply()

	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	for _, want := range []string{"# Workspace member manifest.", "# Feature wiring.", `"midware/enable-tracing"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("output missing %q:\n%s", want, data)
		}
	}

	reparsed := parseSample(t, string(data))
	got, ok, err := reparsed.FeatureArray("enable-tracing")
	if err != nil || !ok {
		t.Fatalf("FeatureArray() = %v, %v, %v", got, ok, err)
	}
	if diff := cmp.Diff(patch.After, got); diff != "" {
		t.Errorf("reparsed array mismatch (-want +got):\n%s", diff)
	}

	// Unrelated features keep their entries.
	def, ok, err := reparsed.FeatureArray("default")
	if err != nil || !ok || len(def) != 1 || def[0] != "std" {
		t.Errorf("default = %v, %v, %v, want [std]", def, ok, err)
	}
}

func TestApplyCreatesFeaturesTable(t *testing.T) {
	doc := parseSample(t, "[package]\nname = \"foo\"\nversion = \"0.1.0\"\n")
	patch, err := Compute(doc, plan("unstable", []string{"core/unstable"}, nil, false))
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	patch.Apply()

	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	if !strings.Contains(string(data), "[features]") {
		t.Fatalf("output missing [features] table:\n%s", data)
	}

	reparsed := parseSample(t, string(data))
	got, ok, err := reparsed.FeatureArray("unstable")
	if err != nil || !ok {
		t.Fatalf("FeatureArray() = %v, %v, %v", got, ok, err)
	}
	if diff := cmp.Diff([]string{"core/unstable"}, got); diff != "" {
		t.Errorf("created array mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyUnchangedIsNoop(t *testing.T) {
	doc := parseSample(t, sampleManifest)
	before, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	patch, err := Compute(doc, plan("enable-tracing", []string{"logging/enable-tracing"}, nil, false))
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	patch.Apply()

	after, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Errorf("document changed by no-op apply:\n%s", after)
	}
}

func TestPatchWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Cargo.toml")
	if err := os.WriteFile(path, []byte(sampleManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	p := plan("enable-tracing", []string{"logging/enable-tracing", "midware/enable-tracing"}, nil, false)
	patch, err := Compute(doc, p)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if err := patch.Write(); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// Second run computes no change.
	doc2, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	patch2, err := Compute(doc2, p)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if patch2.Changed() {
		t.Errorf("second run Changed() = true, want false (before=%v after=%v)", patch2.Before, patch2.After)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}
