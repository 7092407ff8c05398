package dashboard

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	empty   lipgloss.Style
	warning lipgloss.Style
	pending lipgloss.Style
	running lipgloss.Style
	stopped lipgloss.Style
	failed  lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		header:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		empty:   lipgloss.NewStyle().Faint(true),
		warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		pending: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		running: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		stopped: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		value:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	}
}
