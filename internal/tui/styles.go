package tui

import "github.com/charmbracelet/lipgloss"

// Shared styles.
//
//nolint:gochecknoglobals // lipgloss styles are immutable values shared by views.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	TableHeaderStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240")).
				BorderBottom(true).
				Bold(true)

	TableSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	StatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	HelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)
