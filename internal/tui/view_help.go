package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (a *App) renderHelp() string {
	var b strings.Builder

	title := styleTitle.Render("Help")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	about := []string{
		"  Write a prompt, pick the model it is meant for, and",
		"  promptly rewrites it to be clearer without changing",
		"  what you asked for. It never answers the prompt.",
	}
	aboutBox := styleBox.Copy().
		Width(60).
		Render(strings.Join(about, "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, aboutBox))
	b.WriteString("\n\n")

	shortcuts := []string{
		"  Form",
		"    Ctrl+S         Optimize",
		"    Tab            Switch between model list and prompt",
		"    Up/Down        Pick a model (model list focused)",
		"",
		"  Result",
		"    c              Copy optimized prompt",
		"    a              Answer clarifying questions",
		"    r              Retry with a fresh attempt",
		"    e / n          Edit prompt / start over",
		"",
		"  Anywhere",
		"    Esc            Go back / cancel a running request",
		"    Ctrl+O         Settings",
		"    Ctrl+C         Quit",
	}

	shortcutsTitle := styleSubtitle.Render("Keyboard Shortcuts")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, shortcutsTitle))
	b.WriteString("\n\n")

	shortcutsBox := styleBox.Copy().
		Width(60).
		Render(strings.Join(shortcuts, "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, shortcutsBox))
	b.WriteString("\n\n")

	instructions := styleStatusBar.Render("[Esc] Back")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, instructions))

	return a.centerVertically(b.String())
}
