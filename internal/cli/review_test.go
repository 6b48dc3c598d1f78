package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aspector/aspector/pkg/manifest"
)

func reviewPatches() []*manifest.Patch {
	return []*manifest.Patch{
		{
			Package: "foo",
			Feature: "enable-tracing",
			After:   []string{"logging/enable-tracing"},
			Added:   []string{"logging/enable-tracing"},
		},
		{
			Package: "bar",
			Feature: "enable-tracing",
			After:   []string{"foo/enable-tracing"},
			Added:   []string{"foo/enable-tracing"},
		},
	}
}

func key(s string) tea.Msg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestReviewModelNavigation(t *testing.T) {
	m := NewReviewModel("enable-tracing", reviewPatches())

	// Down moves, and stops at the last row
	next, _ := m.Update(key("j"))
	m = next.(ReviewModel)
	if m.Cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.Cursor)
	}
	next, _ = m.Update(key("down"))
	m = next.(ReviewModel)
	if m.Cursor != 1 {
		t.Errorf("cursor should stop at the last row, got %d", m.Cursor)
	}

	// Up moves back, and stops at the first row
	next, _ = m.Update(key("k"))
	m = next.(ReviewModel)
	if m.Cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.Cursor)
	}
	next, _ = m.Update(key("up"))
	m = next.(ReviewModel)
	if m.Cursor != 0 {
		t.Errorf("cursor should stop at the first row, got %d", m.Cursor)
	}
}

func TestReviewModelConfirm(t *testing.T) {
	m := NewReviewModel("enable-tracing", reviewPatches())

	next, cmd := m.Update(key("enter"))
	m = next.(ReviewModel)

	if !m.Confirmed {
		t.Error("enter should confirm")
	}
	if !isQuit(cmd) {
		t.Error("confirming should quit the program")
	}
}

func TestReviewModelAbort(t *testing.T) {
	for _, k := range []string{"q", "esc"} {
		m := NewReviewModel("enable-tracing", reviewPatches())

		next, cmd := m.Update(key(k))
		m = next.(ReviewModel)

		if m.Confirmed {
			t.Errorf("%q should not confirm", k)
		}
		if !isQuit(cmd) {
			t.Errorf("%q should quit the program", k)
		}
	}
}

func TestReviewModelView(t *testing.T) {
	m := NewReviewModel("enable-tracing", reviewPatches())
	view := m.View()

	for _, want := range []string{"enable-tracing", "foo", "bar", "logging/enable-tracing"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q", want)
		}
	}
}

func TestReviewModelViewShowsSelection(t *testing.T) {
	m := NewReviewModel("enable-tracing", reviewPatches())

	next, _ := m.Update(key("j"))
	m = next.(ReviewModel)

	// The detail pane follows the cursor
	if view := m.View(); !strings.Contains(view, "foo/enable-tracing") {
		t.Error("view should show the selected package's array")
	}
}

func TestReviewModelInit(t *testing.T) {
	m := NewReviewModel("enable-tracing", nil)
	if m.Init() != nil {
		t.Error("Init should not schedule a command")
	}
	// An empty model must still render
	if m.View() == "" {
		t.Error("View should render the header even with no patches")
	}
}
