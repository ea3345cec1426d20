package main

import "github.com/charmbracelet/lipgloss"

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// field renders "label: value" for one-line summaries.
func field(label string, value any) string {
	return labelStyle.Render(label+":") + " " + valueStyle.Render(fmtValue(value))
}
