package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sant0-9/promptly/internal/tui/styles"
)

// truncate shortens text to maxLen runes, adding "..." if truncated
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

var (
	// Colors
	colorPrimary   = styles.ColorPrimary
	colorSecondary = styles.ColorSecondary
	colorSuccess   = styles.ColorSuccess
	colorWarning   = styles.ColorWarning
	colorError     = styles.ColorError
	colorMuted     = styles.ColorMuted
	colorWhite     = styles.ColorWhite

	// Logo style
	styleLogo = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleTitle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	// Subtitle
	styleSubtitle = lipgloss.NewStyle().
			Foreground(colorMuted)

	// Box
	styleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	// Status bar
	styleStatusBar = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleSelected = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)

	styleFlash = lipgloss.NewStyle().
			Foreground(colorSuccess)

	styleValidation = lipgloss.NewStyle().
			Foreground(colorWarning)

	styleSpinner = lipgloss.NewStyle().
			Foreground(colorSecondary)
)
