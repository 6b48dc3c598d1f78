package cli

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/aspector/aspector/pkg/buildinfo"
	"github.com/aspector/aspector/pkg/pipeline"
	"github.com/aspector/aspector/pkg/workspace"
)

func newTestCLI() *CLI {
	return New(&bytes.Buffer{}, log.InfoLevel)
}

func TestNew(t *testing.T) {
	c := newTestCLI()
	if c.Logger == nil {
		t.Fatal("New() should set up a logger")
	}
}

func TestSetLogLevel(t *testing.T) {
	c := newTestCLI()
	c.SetLogLevel(log.DebugLevel)
	if got := c.Logger.GetLevel(); got != log.DebugLevel {
		t.Errorf("level = %v, want %v", got, log.DebugLevel)
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newTestCLI().RootCommand()

	for _, name := range []string{"propagate", "graph", "completion"} {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command is missing subcommand %q", name)
		}
	}
}

func TestRootCommandVersion(t *testing.T) {
	root := newTestCLI().RootCommand()
	if root.Version != buildinfo.Version {
		t.Errorf("Version = %q, want %q", root.Version, buildinfo.Version)
	}
}

func TestRootCommandSilencesNoise(t *testing.T) {
	root := newTestCLI().RootCommand()
	if !root.SilenceUsage {
		t.Error("usage should not be reprinted on errors")
	}
	if !root.SilenceErrors {
		t.Error("error printing belongs to main, not cobra")
	}
}

func TestSelectLoaderExplicitScan(t *testing.T) {
	opts := pipeline.Options{Scan: true}
	newTestCLI().selectLoader(&opts)
	if opts.Loader != nil {
		t.Error("explicit scan mode should not pick a loader")
	}
}

func TestSelectLoaderPreseeded(t *testing.T) {
	seeded := workspace.NewScanLoader("")
	opts := pipeline.Options{Loader: seeded}
	newTestCLI().selectLoader(&opts)
	if opts.Loader != workspace.Loader(seeded) {
		t.Error("a pre-seeded loader should be left alone")
	}
}

func TestSelectLoaderDefault(t *testing.T) {
	opts := pipeline.Options{}
	newTestCLI().selectLoader(&opts)
	// Either cargo was found on PATH or the scan fallback kicked in.
	if opts.Loader == nil && !opts.Scan {
		t.Error("selectLoader should pick cargo or fall back to scanning")
	}
}
