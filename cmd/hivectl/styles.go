package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles mirror bd-examples' pass/warn/fail/muted/accent palette, kept
// adaptive to the terminal's light/dark background via termenv detection.
var (
	termProfile = termenv.ColorProfile()

	styleOK = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#86b300", Dark: "#c2d94c",
	})
	styleWarn = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f2ae49", Dark: "#ffb454",
	})
	styleFail = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f07171", Dark: "#f07178",
	})
	styleMuted = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#828c99", Dark: "#6c7680",
	})
	styleAccent = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#399ee6", Dark: "#59c2ff",
	}).Bold(true)
)

func colorEnabled() bool {
	return termProfile != termenv.Ascii
}

func renderStatus(status string) string {
	if !colorEnabled() {
		return status
	}
	switch status {
	case "open", "completed", "approved", "granted":
		return styleOK.Render(status)
	case "blocked", "needs_changes", "conflict", "scope_violation":
		return styleFail.Render(status)
	case "in_progress", "reviewing":
		return styleWarn.Render(status)
	default:
		return styleMuted.Render(status)
	}
}
