package app

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme colors (Catppuccin Mocha inspired).
var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#1e66f5", Dark: "#89b4fa"} // Blue
	colorSuccess = lipgloss.AdaptiveColor{Light: "#40a02b", Dark: "#a6e3a1"} // Green
	colorWarning = lipgloss.AdaptiveColor{Light: "#df8e1d", Dark: "#f9e2af"} // Yellow
	colorError   = lipgloss.AdaptiveColor{Light: "#d20f39", Dark: "#f38ba8"} // Red
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6c6f85", Dark: "#6c7086"} // Overlay0
)

// styles are bound to a renderer for one output stream, so colors are only
// emitted when that stream is a terminal.
type styles struct {
	Title   lipgloss.Style
	Name    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		Title: r.NewStyle().
			Bold(true).
			Foreground(colorPrimary),

		Name: r.NewStyle().
			Bold(true),

		Muted: r.NewStyle().
			Foreground(colorMuted),

		Success: r.NewStyle().
			Foreground(colorSuccess),

		Warning: r.NewStyle().
			Foreground(colorWarning),

		Error: r.NewStyle().
			Foreground(colorError).
			Bold(true),
	}
}
