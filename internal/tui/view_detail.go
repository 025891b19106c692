package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sant0-9/promptly/internal/optimizer"
)

func (a *App) setDetailContent(text string) {
	wrapped := lipgloss.NewStyle().Width(max(10, a.state.detail.Width-1)).Render(text)
	a.state.detail.SetContent(wrapped)
	a.state.detail.GotoTop()
}

func (a *App) renderDetail() string {
	switch r := a.state.result.(type) {
	case optimizer.Success:
		return a.renderSuccess(r)
	case optimizer.Rejection:
		return a.renderRejection(r)
	default:
		return a.renderForm()
	}
}

func (a *App) renderSuccess(r optimizer.Success) string {
	var b strings.Builder
	w := a.contentWidth()

	title := styleTitle.Render("Optimized prompt")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n")
	target := styleSubtitle.Render("for " + a.state.targetModel.Title)
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, target))
	b.WriteString("\n\n")

	resultBox := styleBox.Copy().
		Width(w).
		BorderForeground(colorPrimary).
		Render(a.state.detail.View())
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, resultBox))
	b.WriteString("\n")

	if a.state.detail.TotalLineCount() > a.state.detail.Height {
		scroll := styleSubtitle.Render(fmt.Sprintf("%3.0f%%  [up/down] scroll", a.state.detail.ScrollPercent()*100))
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, scroll))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if r.HasQuestions() {
		lines := []string{styleSubtitle.Render("The model has questions that could sharpen this prompt:")}
		for i, q := range r.ClarifyingQuestions {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, q))
		}
		qBox := styleBox.Copy().
			Width(w).
			BorderForeground(colorWarning).
			Render(lipgloss.NewStyle().Width(w - 4).Render(strings.Join(lines, "\n")))
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, qBox))
		b.WriteString("\n\n")
	}

	if a.state.flash != "" {
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, styleFlash.Render(a.state.flash)))
		b.WriteString("\n\n")
	}

	actions := "[c] Copy  [r] Retry  [e] Edit  [n] New  [Esc] Back"
	if r.HasQuestions() {
		actions = "[c] Copy  [a] Clarify your prompt  [r] Retry  [e] Edit  [n] New  [Esc] Back"
	}
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, styleStatusBar.Render(actions)))

	return a.centerVertically(b.String())
}

func (a *App) renderRejection(r optimizer.Rejection) string {
	var b strings.Builder
	w := a.contentWidth()

	title := lipgloss.NewStyle().
		Foreground(colorWarning).
		Bold(true).
		Render("This input could not be optimized")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	reason := styleBox.Copy().
		Width(w).
		BorderForeground(colorWarning).
		Render(r.RejectReason)
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, reason))
	b.WriteString("\n\n")

	asked := styleSubtitle.Render("> " + truncate(firstLine(a.state.initialPrompt), 60))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, asked))
	b.WriteString("\n\n")

	status := styleStatusBar.Render("[e] Edit prompt  [r] Try again  [n] New  [Esc] Back")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, status))

	return a.centerVertically(b.String())
}
