package tui

import (
	"cmp"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/core/thread"
	"github.com/hay-kot/huddle/internal/styles"
)

const (
	// avatarWidth is the column reserved left of other people's bubbles.
	avatarWidth = 3
	// bubbleShare is the largest fraction of the view a bubble may span.
	bubbleShare = 0.75
	minBubble   = 12
)

// bubbleBorder rounds the outer corners of a bubble and squares the corners
// that face a neighbour from the same group.
func bubbleBorder(attr thread.GroupAttributes) lipgloss.Border {
	b := lipgloss.RoundedBorder()
	if attr.Align == thread.AlignRight {
		if !attr.IsFirstInGroup {
			b.TopRight = "┐"
		}
		if !attr.IsLastInGroup {
			b.BottomRight = "┘"
		}
		return b
	}

	if !attr.IsFirstInGroup {
		b.TopLeft = "┌"
	}
	if !attr.IsLastInGroup {
		b.BottomLeft = "└"
	}
	return b
}

func displayName(a chat.Author) string {
	return cmp.Or(strings.TrimSpace(a.Name), a.ID)
}

// initial is the avatar glyph: the first letter or digit of the display name.
func initial(a chat.Author) string {
	for _, r := range displayName(a) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return string(unicode.ToUpper(r))
		}
	}
	return "?"
}

func avatar(a chat.Author) string {
	return lipgloss.NewStyle().
		Width(avatarWidth).
		Align(lipgloss.Center).
		Foreground(styles.ColorInk).
		Background(styles.ColorForString(a.ID)).
		Bold(true).
		Render(initial(a))
}

// bubbleWidth returns the inner width (text plus padding) for a bubble that
// holds text and timestamp inside a view of width columns.
func bubbleWidth(text, timestamp string, width int) int {
	limit := max(int(float64(width)*bubbleShare)-avatarWidth-3, minBubble)

	widest := lipgloss.Width(timestamp)
	for line := range strings.SplitSeq(text, "\n") {
		widest = max(widest, lipgloss.Width(line))
	}
	return min(widest+2, limit)
}

// renderMessage draws one message as it appears in the thread: an optional
// author line, the bubble with the time beneath the text, the avatar column
// for other participants and a blank line after the last message of a group.
func renderMessage(msg chat.Message, attr thread.GroupAttributes, width int, selected bool) string {
	style := otherBubbleStyle
	if attr.IsOwnMessage {
		style = ownBubbleStyle
	}
	if selected {
		style = style.BorderForeground(selectedBorder)
	}

	text := msg.Text
	if strings.TrimSpace(text) == "" {
		text = " "
	}
	timeLine := lipgloss.NewStyle().
		Foreground(styles.ColorGray).
		Background(style.GetBackground()).
		Render(attr.FormattedTime)

	inner := bubbleWidth(text, attr.FormattedTime, width)
	bubble := style.
		Border(bubbleBorder(attr)).
		Width(inner).
		Render(text + "\n" + timeLine)

	var b strings.Builder

	if attr.Align == thread.AlignRight {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Right, bubble))
	} else {
		if attr.IsFirstInGroup {
			name := authorStyle.Foreground(styles.ColorForString(msg.Author.ID)).Render(displayName(msg.Author))
			b.WriteString(strings.Repeat(" ", avatarWidth+1) + name + "\n")
		}

		gutter := strings.Repeat(" ", avatarWidth)
		if attr.ShowAvatar {
			gutter = avatar(msg.Author)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Bottom, gutter, " ", bubble))
	}

	b.WriteString("\n")
	if attr.IsLastInGroup {
		b.WriteString("\n")
	}
	return b.String()
}
