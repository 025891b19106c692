package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sant0-9/promptly/internal/config"
)

const logo = `
 ┌─┐┬─┐┌─┐┌┬┐┌─┐┌┬┐┬ ┬ ┬
 ├─┘├┬┘│ ││││├─┘ │ │ └┬┘
 ┴  ┴└─└─┘┴ ┴┴   ┴ ┴─┘┴
`

func (a *App) renderSetup() string {
	switch a.state.setupStep {
	case 0:
		return a.renderProviderSelection()
	case 1:
		return a.renderCredentialEntry()
	default:
		return ""
	}
}

func (a *App) renderProviderSelection() string {
	var b strings.Builder

	// Header
	header := styleLogo.Render(logo)
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, header))
	b.WriteString("\n\n")

	title := lipgloss.NewStyle().
		Foreground(colorWhite).
		Bold(true).
		Render("Welcome! Which endpoint should run the optimizer?")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	var providerLines []string
	for i, p := range config.Providers {
		if i == a.state.selectedProvider {
			providerLines = append(providerLines, styleSelected.Render(fmt.Sprintf("> [x] %-8s %s", p.Name, p.Description)))
		} else {
			providerLines = append(providerLines, styleSubtitle.Render(fmt.Sprintf("  [ ] %-8s %s", p.Name, p.Description)))
		}
	}

	providerBox := styleBox.Copy().
		Width(min(64, a.width-4)).
		Render(strings.Join(providerLines, "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, providerBox))
	b.WriteString("\n\n")

	instructions := styleStatusBar.Render("[j/k] Navigate  [Enter] Select  [Esc] Quit")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, instructions))

	return a.centerVertically(b.String())
}

func (a *App) renderCredentialEntry() string {
	var b strings.Builder

	provider := config.GetProvider(a.state.config.Provider)
	if provider == nil {
		provider = &config.Providers[0]
	}

	header := styleLogo.Render(logo)
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, header))
	b.WriteString("\n\n")

	prompt := fmt.Sprintf("Enter your %s API key:", provider.Name)
	if !provider.NeedsAPIKey {
		prompt = "Enter the base URL of your OpenAI-compatible endpoint:"
	}
	title := lipgloss.NewStyle().
		Foreground(colorWhite).
		Bold(true).
		Render(prompt)
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	// Signup link
	if provider.SignupURL != "" {
		link := styleSubtitle.Render(fmt.Sprintf("Get one at: %s", provider.SignupURL))
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, link))
		b.WriteString("\n")
		hint := styleSubtitle.Render(fmt.Sprintf("or set %s in your environment", config.EnvAPIKey))
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, hint))
		b.WriteString("\n\n")
	}

	inputBox := styleBox.Copy().
		Width(min(60, a.width-4)).
		BorderForeground(colorSecondary).
		Render(a.state.apiKeyInput.View())
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, inputBox))
	b.WriteString("\n\n")

	if a.state.setupError != "" {
		msg := styleValidation.Render(a.state.setupError)
		b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, msg))
		b.WriteString("\n\n")
	}

	instructions := styleStatusBar.Render("[Enter] Continue  [Esc] Back")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, instructions))

	return a.centerVertically(b.String())
}

func (a *App) centerVertically(content string) string {
	lines := strings.Count(content, "\n") + 1
	padding := (a.height - lines) / 2
	if padding < 0 {
		padding = 0
	}
	return strings.Repeat("\n", padding) + content
}
