package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aspector/aspector/pkg/manifest"
	"github.com/aspector/aspector/pkg/pipeline"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// ReviewModel - Interactive change review
// =============================================================================

// ReviewModel is the bubbletea model for reviewing planned changes before
// any manifest is written.
type ReviewModel struct {
	Aspect    string
	Patches   []*manifest.Patch
	Cursor    int
	Confirmed bool
}

// NewReviewModel creates a review model over the pending patches.
func NewReviewModel(aspect string, patches []*manifest.Patch) ReviewModel {
	return ReviewModel{Aspect: aspect, Patches: patches}
}

func (m ReviewModel) Init() tea.Cmd {
	return nil
}

func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Patches)-1 {
				m.Cursor++
			}
		case "enter", "y":
			m.Confirmed = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ReviewModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Review changes for " + m.Aspect))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("arrows: navigate  enter/y: apply all  q: abort"))
	b.WriteString("\n\n")

	for i, p := range m.Patches {
		cursor := "  "
		if i == m.Cursor {
			cursor = "> "
		}

		change := fmt.Sprintf("+%d", len(p.Added))
		if len(p.Added) == 0 {
			change = "resort"
		}

		line := fmt.Sprintf("%s%-25s  %s", cursor, p.Package, listDimStyle.Render(change))

		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if len(m.Patches) > 0 {
		sel := m.Patches[m.Cursor]
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render(strings.Repeat("-", 40)))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("  %s = %s\n", sel.Feature, formatEntries(sel.After, sel.Added)))
	}

	return b.String()
}

// =============================================================================
// Interactive apply
// =============================================================================

// reviewAndApply plans the run, lets the user inspect the pending changes,
// and writes them only after confirmation.
func (c *CLI) reviewAndApply(ctx context.Context, runner *pipeline.Runner, popts pipeline.Options) error {
	result, err := runner.Plan(ctx, popts)
	if err != nil {
		return err
	}

	changed := result.ChangedPatches()
	if len(changed) == 0 {
		printSuccess("nothing to do, all %d affected manifests already forward %s",
			len(result.Patches), result.Resolution.Aspect)
		return nil
	}

	m := NewReviewModel(result.Resolution.Aspect, changed)
	p := tea.NewProgram(m)
	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	fm, ok := finalModel.(ReviewModel)
	if !ok || !fm.Confirmed {
		printDetail("Aborted, no manifests written")
		return nil
	}

	for _, patch := range changed {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := patch.Write(); err != nil {
			return err
		}
		printFile(patch.Path)
	}
	printNewline()
	printSuccess("updated %d of %d affected manifests", len(changed), len(result.Patches))
	return nil
}
