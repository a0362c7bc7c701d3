// Package tui implements the Bubble Tea interface for taskdeck.
package tui

import "github.com/charmbracelet/lipgloss"

// Icons and symbols.
const (
	iconDot     = "•"
	iconPending = "◌"
	iconDone    = "✓"
)

var (
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	styleCursor = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	styleDone = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")).
			Strikethrough(true)

	stylePending = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	styleDue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	styleOnline = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	styleOffline = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true)

	styleStatusBar = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	styleNotice = lipgloss.NewStyle().
			Foreground(lipgloss.Color("221"))

	styleHelp = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)
