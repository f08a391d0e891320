package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/core/thread"
)

// ThreadView renders the conversation into a scrollable viewport. It is the
// scroll target for the room's directives.
type ThreadView struct {
	vp    viewport.Model
	ready bool
	width int

	messages []chat.Message
	attrs    []thread.GroupAttributes
	selected string // message id, empty when nothing is selected

	// offsets[i] is the first content line of message i; offsets[len] is
	// the total line count.
	offsets []int
	lines   thread.ScrollCoordinator
}

var _ thread.ScrollTarget = (*ThreadView)(nil)

// NewThreadView creates a view that becomes ready on the first SetSize.
func NewThreadView() *ThreadView {
	return &ThreadView{}
}

// Ready reports whether the viewport has been sized.
func (v *ThreadView) Ready() bool { return v.ready }

// ScrollToEnd jumps to the newest message.
func (v *ThreadView) ScrollToEnd(bool) {
	v.vp.GotoBottom()
}

// SetSize lays the viewport out. The first call makes the view ready.
func (v *ThreadView) SetSize(width, height int) {
	height = max(height, 1)
	if !v.ready {
		v.vp = viewport.New(width, height)
		v.ready = true
	} else {
		v.vp.Width = width
		v.vp.Height = height
	}
	v.width = width
	v.render()
}

// SetView replaces the displayed conversation and applies the view's scroll
// directive. Before the first SetSize nothing is scrolled or remembered; the
// first layout scrolls on its own.
func (v *ThreadView) SetView(view thread.View) {
	v.messages = view.Messages
	v.attrs = view.Attributes
	if v.selectedIndex() < 0 {
		v.selected = ""
	}
	v.render()
	thread.Apply(view.Scroll, v)
}

// render rebuilds the viewport content. A change in rendered height is a
// content-size change and scrolls to the end.
func (v *ThreadView) render() {
	if !v.ready {
		return
	}

	var b strings.Builder
	v.offsets = v.offsets[:0]
	line := 0

	if len(v.messages) == 0 {
		b.WriteString(emptyStyle.Render("No messages yet"))
		line = 1
	}

	for i, msg := range v.messages {
		v.offsets = append(v.offsets, line)

		var attr thread.GroupAttributes
		if i < len(v.attrs) {
			attr = v.attrs[i]
		}
		block := renderMessage(msg, attr, v.width, msg.ID == v.selected)
		b.WriteString(block)
		line += strings.Count(block, "\n")
	}
	v.offsets = append(v.offsets, line)

	v.vp.SetContent(strings.TrimSuffix(b.String(), "\n"))
	thread.Apply(v.lines.OnContentSizeChanged(line), v)
}

func (v *ThreadView) selectedIndex() int {
	if v.selected == "" {
		return -1
	}
	for i, msg := range v.messages {
		if msg.ID == v.selected {
			return i
		}
	}
	return -1
}

// Selected returns the selected message.
func (v *ThreadView) Selected() (chat.Message, bool) {
	i := v.selectedIndex()
	if i < 0 {
		return chat.Message{}, false
	}
	return v.messages[i], true
}

// MoveUp selects the previous message, starting from the newest.
func (v *ThreadView) MoveUp() {
	v.move(-1)
}

// MoveDown selects the next message, starting from the newest.
func (v *ThreadView) MoveDown() {
	v.move(1)
}

func (v *ThreadView) move(delta int) {
	if len(v.messages) == 0 {
		return
	}

	i := v.selectedIndex()
	switch {
	case i < 0:
		i = len(v.messages) - 1
	default:
		i = min(max(i+delta, 0), len(v.messages)-1)
	}

	v.selected = v.messages[i].ID
	v.render()
	v.reveal(i)
}

// ClearSelection drops the selection.
func (v *ThreadView) ClearSelection() {
	if v.selected == "" {
		return
	}
	v.selected = ""
	v.render()
}

// reveal scrolls just enough to show message i in full.
func (v *ThreadView) reveal(i int) {
	if !v.ready || i+1 >= len(v.offsets) {
		return
	}
	top, bottom := v.offsets[i], v.offsets[i+1]
	switch {
	case top < v.vp.YOffset:
		v.vp.SetYOffset(top)
	case bottom > v.vp.YOffset+v.vp.Height:
		v.vp.SetYOffset(bottom - v.vp.Height)
	}
}

// GotoBottom scrolls to the newest message.
func (v *ThreadView) GotoBottom() {
	v.vp.GotoBottom()
}

// AtBottom reports whether the newest message is in view.
func (v *ThreadView) AtBottom() bool {
	return v.vp.AtBottom()
}

// Update forwards paging keys and mouse wheel events to the viewport.
func (v *ThreadView) Update(msg tea.Msg) tea.Cmd {
	if !v.ready {
		return nil
	}
	var cmd tea.Cmd
	v.vp, cmd = v.vp.Update(msg)
	return cmd
}

// View renders the viewport.
func (v *ThreadView) View() string {
	if !v.ready {
		return ""
	}
	return v.vp.View()
}
