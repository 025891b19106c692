package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sant0-9/promptly/internal/config"
)

func (a *App) renderError() string {
	var b strings.Builder

	info := a.state.err
	if info == nil {
		info = &errorInfo{title: "Something went wrong", message: "Unknown error"}
	}

	title := lipgloss.NewStyle().
		Foreground(colorError).
		Bold(true).
		Render(info.title)
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	errMsg := info.message
	if info.status > 0 {
		errMsg = fmt.Sprintf("%s\n\nStatus: %d", errMsg, info.status)
	}
	errBox := styleBox.Copy().
		Width(min(60, a.width-4)).
		BorderForeground(colorError).
		Render(errMsg)
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, errBox))
	b.WriteString("\n\n")

	if suggestions := suggestionsFor(info); len(suggestions) > 0 {
		suggBox := styleBox.Copy().
			Width(min(60, a.width-4)).
			BorderForeground(colorMuted).
			Render("Suggestions:\n" + strings.Join(suggestions, "\n"))
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, suggBox))
		b.WriteString("\n\n")
	}

	actions := "[s] Settings  [n] New  [Esc] Back"
	if a.state.lastReq != nil {
		actions = "[r] Retry  " + actions
	}
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, styleStatusBar.Render(actions)))

	return a.centerVertically(b.String())
}

// suggestionsFor picks hints from the status code and message.
func suggestionsFor(info *errorInfo) []string {
	var suggestions []string
	errLower := strings.ToLower(info.message)

	configPath, _ := config.ConfigPath()

	switch {
	case info.status == 401 || strings.Contains(errLower, "api key") || strings.Contains(errLower, "unauthorized"):
		suggestions = append(suggestions, "Check your API key in "+configPath)
		suggestions = append(suggestions, "Or press [s] to update it in settings")
		if p := config.GetProvider("openai"); p != nil {
			suggestions = append(suggestions, "Keys are managed at "+p.SignupURL)
		}
	case info.status == 429 || strings.Contains(errLower, "rate limit") || strings.Contains(errLower, "quota"):
		suggestions = append(suggestions, "You've hit the API rate limit or quota")
		suggestions = append(suggestions, "Wait a moment and press [r] to retry")
		suggestions = append(suggestions, "Set requests_per_minute in the config to pace calls")
	case info.status >= 500:
		suggestions = append(suggestions, "The provider is having trouble; try again shortly")
	case info.status == 404 || strings.Contains(errLower, "model"):
		suggestions = append(suggestions, "Check execution_model in "+configPath)
	case strings.Contains(errLower, "timed out") || strings.Contains(errLower, "connect") || info.message == "OpenAI request failed":
		suggestions = append(suggestions, "Check your internet connection")
		suggestions = append(suggestions, "Or raise timeout_seconds in the config")
	case strings.Contains(errLower, "invalid response"):
		suggestions = append(suggestions, "The model answered in an unexpected shape")
		suggestions = append(suggestions, "Press [r] to try again")
	}

	return suggestions
}
