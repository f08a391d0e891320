package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/core/thread"
)

var base = time.Date(2024, 3, 9, 15, 4, 0, 0, time.UTC)

func message(id, author, text string, offset time.Duration) chat.Message {
	return chat.Message{
		ID:        id,
		CreatedAt: base.Add(offset),
		Text:      text,
		Author:    chat.Author{ID: author},
	}
}

// viewOf builds a room view the way the engine does for viewer.
func viewOf(viewer string, msgs ...chat.Message) thread.View {
	list := thread.NewList(msgs)
	grouper := thread.NewGrouper(thread.NewTimeFormatter("en-US", time.UTC))
	return thread.View{
		Messages:   list.Messages(),
		Attributes: grouper.Compute(list, chat.ViewerID(viewer)),
	}
}

func TestBubbleBorder(t *testing.T) {
	// corners are top-left, top-right, bottom-left, bottom-right.
	tests := []struct {
		name    string
		attr    thread.GroupAttributes
		corners [4]string
	}{
		{
			name:    "single other message keeps every corner round",
			attr:    thread.GroupAttributes{IsFirstInGroup: true, IsLastInGroup: true},
			corners: [4]string{"╭", "╮", "╰", "╯"},
		},
		{
			name:    "middle of other group squares the left side",
			attr:    thread.GroupAttributes{},
			corners: [4]string{"┌", "╮", "└", "╯"},
		},
		{
			name:    "first own message squares the bottom right",
			attr:    thread.GroupAttributes{IsOwnMessage: true, IsFirstInGroup: true, Align: thread.AlignRight},
			corners: [4]string{"╭", "╮", "╰", "┘"},
		},
		{
			name:    "last own message squares the top right",
			attr:    thread.GroupAttributes{IsOwnMessage: true, IsLastInGroup: true, Align: thread.AlignRight},
			corners: [4]string{"╭", "┐", "╰", "╯"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bubbleBorder(tt.attr)
			assert.Equal(t, tt.corners, [4]string{b.TopLeft, b.TopRight, b.BottomLeft, b.BottomRight})
		})
	}
}

func TestInitial(t *testing.T) {
	assert.Equal(t, "A", initial(chat.Author{ID: "alice@example.com"}))
	assert.Equal(t, "B", initial(chat.Author{ID: "x", Name: "  bob"}))
	assert.Equal(t, "7", initial(chat.Author{ID: "_7up"}))
	assert.Equal(t, "?", initial(chat.Author{ID: "!!!"}))
}

func TestRenderMessage_Layout(t *testing.T) {
	view := viewOf("alice",
		message("m1", "bob", "hey", 0),
		message("m2", "bob", "you there?", time.Minute),
		message("m3", "alice", "yes", 2*time.Minute),
	)

	render := func(i int) string {
		return ansi.Strip(renderMessage(view.Messages[i], view.Attributes[i], 60, false))
	}

	first := render(0)
	assert.True(t, strings.HasPrefix(first, "    bob\n"), "author line above the first message of a group:\n%s", first)
	assert.Contains(t, first, "3:04 PM")
	assert.False(t, strings.HasSuffix(first, "\n\n"), "no gap inside a group")

	second := render(1)
	assert.NotContains(t, second, "bob\n", "author line only on the first message")
	assert.Contains(t, second, " B ", "avatar on the last message of someone else's group")
	assert.True(t, strings.HasSuffix(second, "\n\n"), "blank line closes the group")

	own := render(2)
	lines := strings.Split(strings.TrimRight(own, "\n"), "\n")
	for _, line := range lines {
		assert.Equal(t, 60, ansi.StringWidth(line), "own bubble is padded to the right edge")
		assert.True(t, strings.HasPrefix(line, " "), "own bubble is right-aligned")
	}
	assert.NotContains(t, own, "alice", "no author line for the viewer's own messages")
}

func TestRenderMessage_WrapsLongText(t *testing.T) {
	view := viewOf("", message("m1", "bob", strings.Repeat("word ", 40), 0))

	out := ansi.Strip(renderMessage(view.Messages[0], view.Attributes[0], 40, false))
	for line := range strings.SplitSeq(out, "\n") {
		assert.LessOrEqual(t, ansi.StringWidth(line), 40)
	}
}
