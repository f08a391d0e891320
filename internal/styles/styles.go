// Package styles provides the Tokyo Night palette and shared lipgloss styles
// for CLI and TUI output.
package styles

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"
)

// Tokyo Night color palette.
var (
	ColorGreen   = lipgloss.Color("#9ece6a")
	ColorYellow  = lipgloss.Color("#e0af68")
	ColorBlue    = lipgloss.Color("#7aa2f7")
	ColorCyan    = lipgloss.Color("#7dcfff")
	ColorPurple  = lipgloss.Color("#bb9af7")
	ColorOrange  = lipgloss.Color("#ff9e64")
	ColorRed     = lipgloss.Color("#f7768e")
	ColorGray    = lipgloss.Color("#565f89")
	ColorWhite   = lipgloss.Color("#c0caf5")
	ColorSurface = lipgloss.Color("#24283b")
	ColorLight   = lipgloss.Color("#a9b1d6")
	ColorInk     = lipgloss.Color("#1a1b26")
)

// authorColors are the accents handed out to participants.
var authorColors = []lipgloss.Color{
	ColorGreen, ColorYellow, ColorBlue, ColorCyan, ColorPurple, ColorOrange, ColorRed,
}

// ColorForString picks a stable palette color for s.
func ColorForString(s string) lipgloss.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return authorColors[h.Sum32()%uint32(len(authorColors))]
}

// Banner ASCII art for the header.
const Banner = `
 ╦ ╦╦ ╦╔╦╗╔╦╗╦  ╔═╗
 ╠═╣║ ║ ║║ ║║║  ║╣
 ╩ ╩╚═╝═╩╝═╩╝╩═╝╚═╝`

// BannerStyle styles the ASCII art banner.
var BannerStyle = lipgloss.NewStyle().
	Foreground(ColorBlue).
	Bold(true)

// DividerStyle styles horizontal dividers.
var DividerStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// Text styles used by the printer.
var (
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorRed)
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorGreen)
	WarnStyle    = lipgloss.NewStyle().Foreground(ColorYellow)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorGray)
	SectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	BoldStyle    = lipgloss.NewStyle().Bold(true)
)
