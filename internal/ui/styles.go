package ui

import "github.com/charmbracelet/lipgloss"

// Color palette - ANSI 16 colors for broad terminal support
var (
	ColorCyan   = lipgloss.Color("6")
	ColorYellow = lipgloss.Color("3")
	ColorRed    = lipgloss.Color("1")
	ColorGreen  = lipgloss.Color("2")
	ColorGray   = lipgloss.Color("8")
	ColorBlack  = lipgloss.Color("0")
)

// Text styles
var (
	// Observation timestamps in watch output
	TimestampStyle = lipgloss.NewStyle().Foreground(ColorCyan)

	// File names and paths
	PathStyle = lipgloss.NewStyle().Foreground(ColorYellow)

	// Status messages ("Watching...", "Serving...")
	StatusStyle = lipgloss.NewStyle().Foreground(ColorGray).Italic(true)

	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorYellow)
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorGreen)

	// Muted/secondary text
	MutedStyle = lipgloss.NewStyle().Foreground(ColorGray)

	// Filter matches inside a line
	HighlightStyle = lipgloss.NewStyle().
			Background(ColorYellow).
			Foreground(ColorBlack).
			Bold(true)

	// Labels (keys, headers)
	LabelStyle = lipgloss.NewStyle().Foreground(ColorCyan).Bold(true)

	// Marks the file that currently resolves as the log
	CurrentMarkerStyle = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)

	SectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorCyan)
)
