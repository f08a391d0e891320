package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/styles"
)

// Preview modal layout constants.
const (
	previewMaxWidth  = 100 // maximum modal width in columns
	previewMaxHeight = 30  // maximum modal height in rows
	previewMargin    = 4   // margin from screen edges
	previewChrome    = 8   // rows for title, metadata, help and spacing
	previewPadding   = 6   // border plus horizontal padding
	glamourGutter    = 2
)

// PreviewModal shows one message rendered as markdown.
type PreviewModal struct {
	message   chat.Message
	timestamp string
	viewport  viewport.Model
}

// NewPreviewModal creates a preview sized for a width x height screen.
func NewPreviewModal(msg chat.Message, timestamp string, width, height int) PreviewModal {
	modalWidth, modalHeight := previewSize(width, height)

	vp := viewport.New(modalWidth-previewPadding, max(modalHeight-previewChrome, 1))
	m := PreviewModal{message: msg, timestamp: timestamp, viewport: vp}
	m.viewport.SetContent(renderMarkdown(msg.Text, modalWidth-previewPadding-glamourGutter))
	return m
}

func previewSize(width, height int) (int, int) {
	return max(min(width-previewMargin, previewMaxWidth), previewPadding+minBubble),
		max(min(height-previewMargin, previewMaxHeight), previewChrome+1)
}

// renderMarkdown renders text with glamour, falling back to the raw text.
func renderMarkdown(text string, width int) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("tokyo-night"),
		glamour.WithWordWrap(max(width, 10)),
	)
	if err != nil {
		return text
	}

	rendered, err := renderer.Render(text)
	if err != nil {
		return text
	}

	content := strings.TrimSpace(rendered)
	content = stripLeadingDecorative(content)
	return stripTrailingDecorative(content)
}

// ScrollUp scrolls the content up one line.
func (m *PreviewModal) ScrollUp() {
	m.viewport.ScrollUp(1)
}

// ScrollDown scrolls the content down one line.
func (m *PreviewModal) ScrollDown() {
	m.viewport.ScrollDown(1)
}

// Render draws the modal centered in a width x height area.
func (m PreviewModal) Render(width, height int) string {
	modalWidth, _ := previewSize(width, height)
	contentWidth := modalWidth - previewPadding

	author := lipgloss.NewStyle().
		Foreground(styles.ColorForString(m.message.Author.ID)).
		Bold(true).
		Render(displayName(m.message.Author))
	metadata := fmt.Sprintf("%s %s %s", author, iconDot, previewTimeStyle.Render(m.timestamp))

	title := "Message"
	if m.viewport.TotalLineCount() > m.viewport.VisibleLineCount() {
		title += previewTimeStyle.Render(fmt.Sprintf(" (%.0f%%)", m.viewport.ScrollPercent()*100))
	}

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		modalTitleStyle.Render(title),
		"",
		metadata,
		previewDividerStyle.Render(strings.Repeat("─", contentWidth)),
		m.viewport.View(),
		modalHelpStyle.Render("[↑/↓/j/k] scroll  [enter/esc] close"),
	)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		modalStyle.Width(modalWidth-2).Render(content))
}

// ansiPattern matches SGR escape sequences.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// isDecorativeLine reports whether line holds only rule characters or
// whitespace once escape codes are removed.
func isDecorativeLine(line string) bool {
	stripped := strings.TrimSpace(ansiPattern.ReplaceAllString(line, ""))
	for _, r := range stripped {
		if r != '─' && r != '━' && r != '-' && r != '=' {
			return false
		}
	}
	return true
}

func stripLeadingDecorative(content string) string {
	lines := strings.Split(content, "\n")
	start := 0
	for start < len(lines) && isDecorativeLine(lines[start]) {
		start++
	}
	return strings.Join(lines[start:], "\n")
}

func stripTrailingDecorative(content string) string {
	lines := strings.Split(content, "\n")
	end := len(lines)
	for end > 0 && isDecorativeLine(lines[end-1]) {
		end--
	}
	return strings.Join(lines[:end], "\n")
}
