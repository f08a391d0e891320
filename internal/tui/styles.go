// Package tui implements the Bubble Tea conversation view for huddle.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/huddle/internal/styles"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.ColorBlue).
			PaddingLeft(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(styles.ColorGray)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.ColorRed)

	helpStyle = lipgloss.NewStyle().
			Foreground(styles.ColorGray).
			PaddingLeft(1)

	emptyStyle = lipgloss.NewStyle().
			Foreground(styles.ColorGray).
			Italic(true).
			PaddingLeft(2)

	authorStyle = lipgloss.NewStyle().
			Bold(true)
)

// Bubble styles. Own messages sit on a dark surface, everyone else on a light
// one.
var (
	ownBubbleStyle = lipgloss.NewStyle().
			Foreground(styles.ColorWhite).
			Background(styles.ColorSurface).
			BorderForeground(styles.ColorBlue).
			Padding(0, 1)

	otherBubbleStyle = lipgloss.NewStyle().
				Foreground(styles.ColorInk).
				Background(styles.ColorLight).
				BorderForeground(styles.ColorLight).
				Padding(0, 1)

	selectedBorder = styles.ColorYellow
)

// Preview modal styles.
var (
	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.ColorBlue).
			Padding(1, 2)

	modalTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.ColorWhite)

	modalHelpStyle = lipgloss.NewStyle().
			Foreground(styles.ColorGray).
			MarginTop(1)

	previewTimeStyle = lipgloss.NewStyle().
				Foreground(styles.ColorGray)

	previewDividerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#3b4261"))
)

const iconDot = "•"
