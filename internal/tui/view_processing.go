package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sant0-9/promptly/internal/optimizer"
)

// Rotated while waiting for the model.
var loadingMessages = []string{
	"Reading your prompt...",
	"Checking intent...",
	"Rewriting...",
	"Running the self-check...",
}

func (a *App) renderProcessing() string {
	var b strings.Builder
	s := a.state

	heading := "Optimizing"
	if s.running != nil {
		switch s.running.Mode() {
		case optimizer.ModeImprove:
			heading = "Applying your answers"
		case optimizer.ModeRetry:
			heading = "Trying again"
		}
	}
	title := styleTitle.Render(heading)
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	target := styleSubtitle.Render("for " + s.targetModel.Title)
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, target))
	b.WriteString("\n\n")

	asked := styleSubtitle.Render("> " + truncate(firstLine(s.initialPrompt), 60))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, asked))
	b.WriteString("\n\n")

	elapsed := time.Since(s.runStart)
	msg := loadingMessages[int(elapsed.Seconds()/3)%len(loadingMessages)]
	line := fmt.Sprintf("%s %s  %.0fs", s.spinner.View(), msg, elapsed.Seconds())
	box := styleBox.Copy().
		Width(min(50, a.width-4)).
		BorderForeground(colorSecondary).
		Render(line)
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, box))
	b.WriteString("\n\n")

	status := styleStatusBar.Render("[Esc] Cancel")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, status))

	return a.centerVertically(b.String())
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
