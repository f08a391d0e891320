package thread

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeTarget struct {
	ready    bool
	scrolled int
	animated bool
}

func (f *fakeTarget) Ready() bool { return f.ready }

func (f *fakeTarget) ScrollToEnd(animated bool) {
	f.scrolled++
	f.animated = animated
}

func TestScrollCoordinator_MountScrolls(t *testing.T) {
	var c ScrollCoordinator
	d := c.Mount()

	assert.True(t, d.ShouldScrollToEnd)
	assert.False(t, d.Animated)
}

func TestScrollCoordinator_FirstPopulationScrolls(t *testing.T) {
	var c ScrollCoordinator
	assert.True(t, c.OnListChanged(3).ShouldScrollToEnd)
}

func TestScrollCoordinator_FirstEmptyReportScrolls(t *testing.T) {
	var c ScrollCoordinator
	assert.True(t, c.OnListChanged(0).ShouldScrollToEnd)
	assert.False(t, c.OnListChanged(0).ShouldScrollToEnd)
}

func TestScrollCoordinator_AppendScrolls(t *testing.T) {
	var c ScrollCoordinator
	c.OnListChanged(4)

	assert.True(t, c.OnListChanged(5).ShouldScrollToEnd)
}

func TestScrollCoordinator_ShrinkScrolls(t *testing.T) {
	var c ScrollCoordinator
	c.OnListChanged(4)

	assert.True(t, c.OnListChanged(3).ShouldScrollToEnd)
}

func TestScrollCoordinator_UnchangedDoesNotScroll(t *testing.T) {
	var c ScrollCoordinator
	c.OnListChanged(4)

	assert.False(t, c.OnListChanged(4).ShouldScrollToEnd)
	assert.False(t, c.OnAttributesChanged().ShouldScrollToEnd)
}

func TestApply(t *testing.T) {
	t.Run("ready target scrolls without animation", func(t *testing.T) {
		target := &fakeTarget{ready: true}
		assert.True(t, Apply(ScrollDirective{ShouldScrollToEnd: true}, target))
		assert.Equal(t, 1, target.scrolled)
		assert.False(t, target.animated)
	})

	t.Run("unready target is a no-op", func(t *testing.T) {
		target := &fakeTarget{}
		assert.False(t, Apply(ScrollDirective{ShouldScrollToEnd: true}, target))
		assert.Equal(t, 0, target.scrolled)

		// not queued: becoming ready later does not replay it
		target.ready = true
		assert.False(t, Apply(ScrollDirective{}, target))
		assert.Equal(t, 0, target.scrolled)
	})

	t.Run("nil target", func(t *testing.T) {
		assert.False(t, Apply(ScrollDirective{ShouldScrollToEnd: true}, nil))
	})

	t.Run("no directive", func(t *testing.T) {
		target := &fakeTarget{ready: true}
		assert.False(t, Apply(ScrollDirective{}, target))
		assert.Equal(t, 0, target.scrolled)
	})
}
