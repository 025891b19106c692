package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sant0-9/promptly/internal/config"
)

func (a *App) renderSettings() string {
	switch a.state.settingsMode {
	case "apikey":
		return a.renderSettingsAPIKey()
	default:
		return a.renderSettingsMain()
	}
}

func maskKey(k string) string {
	switch {
	case k == "":
		return "Not set"
	case len(k) > 8:
		return k[:4] + "****" + k[len(k)-4:]
	default:
		return "****"
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (a *App) renderSettingsMain() string {
	var b strings.Builder
	cfg := a.state.config

	title := styleTitle.Render("Settings")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	providerName := cfg.Provider
	if provider := config.GetProvider(cfg.Provider); provider != nil {
		providerName = provider.Name
	}

	target := cfg.TargetModel
	if target == "" {
		target = a.registry.Default().Key + " (default)"
	}

	rate := "unlimited"
	if cfg.RequestsPerMinute > 0 {
		rate = fmt.Sprintf("%d/min", cfg.RequestsPerMinute)
	}

	configLines := []string{
		fmt.Sprintf("  Provider:     %s", providerName),
		fmt.Sprintf("  Endpoint:     %s", cfg.Endpoint()),
		fmt.Sprintf("  Model:        %s", cfg.ExecutionModel),
		fmt.Sprintf("  API Key:      %s", maskKey(cfg.APIKey)),
		fmt.Sprintf("  Target model: %s", target),
		fmt.Sprintf("  History:      %s", onOff(cfg.SaveHistory)),
		fmt.Sprintf("  Rate limit:   %s", rate),
		fmt.Sprintf("  Timeout:      %s", cfg.Timeout()),
	}
	if path, err := config.ConfigPath(); err == nil {
		configLines = append(configLines, "", styleSubtitle.Render("  "+path))
	}

	configBox := styleBox.Copy().
		Width(min(64, a.width-4)).
		Render(strings.Join(configLines, "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, configBox))
	b.WriteString("\n\n")

	actions := []string{
		"  [k] Update API key",
		"  [h] Turn history " + onOff(!cfg.SaveHistory),
		"  [r] Reset setup",
	}
	actionsBox := styleBox.Copy().
		Width(min(64, a.width-4)).
		Render(strings.Join(actions, "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, actionsBox))
	b.WriteString("\n\n")

	instructions := styleStatusBar.Render("[Esc] Back")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, instructions))

	return a.centerVertically(b.String())
}

func (a *App) renderSettingsAPIKey() string {
	var b strings.Builder

	title := styleTitle.Render("Update API Key")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	desc := styleSubtitle.Render("Enter your new API key")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, desc))
	b.WriteString("\n\n")

	inputBox := styleBox.Copy().
		Width(min(60, a.width-4)).
		BorderForeground(colorPrimary).
		Render(a.state.apiKeyInput.View())
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, inputBox))
	b.WriteString("\n\n")

	instructions := styleStatusBar.Render("[Enter] Save  [Esc] Cancel")
	b.WriteString(lipgloss.PlaceHorizontal(a.width, lipgloss.Center, instructions))

	return a.centerVertically(b.String())
}
