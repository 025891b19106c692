package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// modelWindow is how many registry entries the picker shows at once.
const modelWindow = 7

func (a *App) renderForm() string {
	var b strings.Builder
	w := a.contentWidth()

	title := styleTitle.Render("Optimize a prompt")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	// Model picker
	pickerStyle := styleBox.Copy().Width(w)
	if a.state.formFocus == focusModels {
		pickerStyle = pickerStyle.BorderForeground(colorSecondary)
	}
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, pickerStyle.Render(a.modelPicker(w-4))))
	b.WriteString("\n")

	// Prompt
	promptStyle := styleBox.Copy().Width(w)
	if a.state.formFocus == focusPrompt {
		promptStyle = promptStyle.BorderForeground(colorSecondary)
	}
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, promptStyle.Render(a.state.prompt.View())))
	b.WriteString("\n")

	counter := styleSubtitle.Render(promptStats(a.state.prompt.Value()))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, counter))
	b.WriteString("\n\n")

	if a.state.formError != "" {
		msg := styleValidation.Render(a.state.formError)
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, msg))
		b.WriteString("\n\n")
	}

	status := styleStatusBar.Render("[Ctrl+S] Optimize  [Tab] Switch field  [Ctrl+O] Settings  [F1] Help  [Esc] Quit")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, status))

	return a.centerVertically(b.String())
}

func (a *App) modelPicker(width int) string {
	all := a.registry.All()
	sel := a.state.selectedModel

	start := sel - modelWindow/2
	if start > len(all)-modelWindow {
		start = len(all) - modelWindow
	}
	if start < 0 {
		start = 0
	}
	end := min(len(all), start+modelWindow)

	lines := []string{styleSubtitle.Render(fmt.Sprintf("Target model (%d/%d)", sel+1, len(all)))}
	for i := start; i < end; i++ {
		m := all[i]
		if i == sel {
			lines = append(lines, styleSelected.Render(truncate("> "+m.Title, width)))
		} else {
			lines = append(lines, styleSubtitle.Render(truncate("  "+m.Title, width)))
		}
	}

	desc := lipgloss.NewStyle().
		Foreground(colorWhite).
		Width(width).
		Render(all[sel].Description)
	lines = append(lines, "", desc)

	return strings.Join(lines, "\n")
}
