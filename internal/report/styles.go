package report

import "github.com/charmbracelet/lipgloss"

var (
	// Colors meet WCAG AA contrast on dark terminals.
	PrimaryColor = lipgloss.Color("#A78BFA") // Purple
	PassColor    = lipgloss.Color("#10B981") // Green
	WarningColor = lipgloss.Color("#F59E0B") // Amber
	FailColor    = lipgloss.Color("#F87171") // Red
	MutedColor   = lipgloss.Color("#9CA3AF") // Gray
	BorderColor  = lipgloss.Color("#6B7280") // Gray

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	Pass = lipgloss.NewStyle().
		Bold(true).
		Foreground(PassColor)

	Fail = lipgloss.NewStyle().
		Bold(true).
		Foreground(FailColor)

	Warning = lipgloss.NewStyle().Foreground(WarningColor)
	Muted   = lipgloss.NewStyle().Foreground(MutedColor)

	Label = lipgloss.NewStyle().
		Foreground(MutedColor).
		Width(20)

	Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 1)
)
