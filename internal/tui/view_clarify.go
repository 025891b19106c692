package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sant0-9/promptly/internal/optimizer"
)

func (a *App) renderClarify() string {
	var b strings.Builder
	w := a.contentWidth()

	success, ok := a.state.result.(optimizer.Success)
	if !ok {
		return a.renderForm()
	}

	title := styleTitle.Render("Clarify your prompt")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n")
	sub := styleSubtitle.Render("Answer any questions you can. Blank answers are skipped.")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, sub))
	b.WriteString("\n\n")

	for i, q := range success.ClarifyingQuestions {
		if i >= len(a.state.answers) {
			break
		}
		question := lipgloss.NewStyle().
			Foreground(colorWhite).
			Width(w - 4).
			Render(fmt.Sprintf("%d. %s", i+1, q))

		style := styleBox.Copy().Width(w)
		if i == a.state.answerFocus {
			style = style.BorderForeground(colorSecondary)
		}
		box := style.Render(question + "\n" + a.state.answers[i].View())
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, box))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if a.state.clarifyError != "" {
		msg := styleValidation.Render(a.state.clarifyError)
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, msg))
		b.WriteString("\n\n")
	}

	status := styleStatusBar.Render("[Tab] Next  [Ctrl+S] Improve prompt  [Esc] Back")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, status))

	return a.centerVertically(b.String())
}
