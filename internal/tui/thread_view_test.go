package tui

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/core/thread"
)

// conversation returns n messages alternating between bob and carol so every
// message is its own group.
func conversation(n int) []chat.Message {
	msgs := make([]chat.Message, n)
	for i := range n {
		author := "bob"
		if i%2 == 1 {
			author = "carol"
		}
		msgs[i] = message(fmt.Sprintf("m%02d", i), author, fmt.Sprintf("message %d", i), time.Duration(i)*time.Minute)
	}
	return msgs
}

func withScroll(v thread.View, scroll bool) thread.View {
	v.Scroll = thread.ScrollDirective{ShouldScrollToEnd: scroll}
	return v
}

func TestThreadView_NotReadyIsNoop(t *testing.T) {
	v := NewThreadView()
	assert.False(t, v.Ready())

	v.SetView(withScroll(viewOf("", conversation(20)...), true))
	assert.Empty(t, v.View())
	assert.False(t, thread.Apply(thread.ScrollDirective{ShouldScrollToEnd: true}, v))
}

func TestThreadView_FirstLayoutLandsAtEnd(t *testing.T) {
	v := NewThreadView()
	v.SetView(withScroll(viewOf("", conversation(20)...), true))

	v.SetSize(60, 10)

	require.True(t, v.Ready())
	assert.True(t, v.AtBottom())
}

func TestThreadView_ScrollsOnAppend(t *testing.T) {
	v := NewThreadView()
	v.SetSize(60, 10)
	v.SetView(withScroll(viewOf("", conversation(20)...), true))
	require.True(t, v.AtBottom())

	v.vp.GotoTop()
	require.False(t, v.AtBottom())

	v.SetView(withScroll(viewOf("", conversation(21)...), true))
	assert.True(t, v.AtBottom())
}

func TestThreadView_NoScrollOnAttributeOnlyChange(t *testing.T) {
	v := NewThreadView()
	v.SetSize(60, 10)
	v.SetView(withScroll(viewOf("", conversation(20)...), true))

	v.vp.GotoTop()

	// A failed delivery re-presents the same list.
	stale := viewOf("", conversation(20)...)
	stale.Err = chat.ErrTransport
	v.SetView(withScroll(stale, false))
	assert.False(t, v.AtBottom())
	assert.Equal(t, 0, v.vp.YOffset)
}

func TestThreadView_Selection(t *testing.T) {
	v := NewThreadView()
	v.SetSize(60, 8)
	v.SetView(withScroll(viewOf("", conversation(10)...), true))

	_, ok := v.Selected()
	assert.False(t, ok)

	v.MoveUp()
	sel, ok := v.Selected()
	require.True(t, ok)
	assert.Equal(t, "m09", sel.ID, "first move selects the newest message")

	for range 20 {
		v.MoveUp()
	}
	sel, _ = v.Selected()
	assert.Equal(t, "m00", sel.ID, "selection stops at the oldest message")
	assert.Equal(t, 0, v.vp.YOffset, "selected message is revealed")

	v.MoveDown()
	sel, _ = v.Selected()
	assert.Equal(t, "m01", sel.ID)

	v.ClearSelection()
	_, ok = v.Selected()
	assert.False(t, ok)
}

func TestThreadView_SelectionSurvivesSnapshots(t *testing.T) {
	v := NewThreadView()
	v.SetSize(60, 8)
	v.SetView(withScroll(viewOf("", conversation(5)...), true))

	v.MoveUp()
	v.MoveUp()
	sel, _ := v.Selected()
	require.Equal(t, "m03", sel.ID)

	v.SetView(withScroll(viewOf("", conversation(6)...), true))
	sel, ok := v.Selected()
	require.True(t, ok)
	assert.Equal(t, "m03", sel.ID)

	v.SetView(withScroll(viewOf("", conversation(2)...), true))
	_, ok = v.Selected()
	assert.False(t, ok, "selection is dropped when the message leaves the list")
}

func TestThreadView_Empty(t *testing.T) {
	v := NewThreadView()
	v.SetSize(60, 5)
	v.SetView(withScroll(thread.View{}, true))

	assert.Contains(t, v.View(), "No messages yet")
	v.MoveUp()
	_, ok := v.Selected()
	assert.False(t, ok)
}
