package thread

// ScrollDirective tells the presentation layer whether to jump to the newest
// message.
type ScrollDirective struct {
	ShouldScrollToEnd bool `json:"should_scroll_to_end"`
	// Animated is always false today: the view jumps, it does not glide.
	Animated bool `json:"animated"`
}

// ScrollTarget is the scrollable surface a directive is applied to.
type ScrollTarget interface {
	// Ready reports whether the surface is attached and laid out.
	Ready() bool
	ScrollToEnd(animated bool)
}

// ScrollCoordinator issues scroll-to-end directives whenever the rendered
// content extent changes. The zero value is ready to use.
type ScrollCoordinator struct {
	extent int
	primed bool
}

var scrollToEnd = ScrollDirective{ShouldScrollToEnd: true}

// Mount is called once when the view is attached. It always scrolls.
func (c *ScrollCoordinator) Mount() ScrollDirective {
	return scrollToEnd
}

// OnListChanged reports a new list length. The first report always scrolls
// so the very first population lands at the end.
func (c *ScrollCoordinator) OnListChanged(newLength int) ScrollDirective {
	return c.OnContentSizeChanged(newLength)
}

// OnContentSizeChanged reports a new rendered extent (rows, lines or items;
// the unit only needs to be consistent).
func (c *ScrollCoordinator) OnContentSizeChanged(extent int) ScrollDirective {
	if c.primed && extent == c.extent {
		return ScrollDirective{}
	}
	c.primed = true
	c.extent = extent
	return scrollToEnd
}

// OnAttributesChanged reports a recomputation that did not change the
// content extent. It never scrolls.
func (c *ScrollCoordinator) OnAttributesChanged() ScrollDirective {
	return ScrollDirective{}
}

// Apply executes d on target. A missing or unready target makes it a no-op;
// nothing is queued, the next extent change triggers again. Apply reports
// whether a scroll happened.
func Apply(d ScrollDirective, target ScrollTarget) bool {
	if !d.ShouldScrollToEnd || target == nil || !target.Ready() {
		return false
	}
	target.ScrollToEnd(d.Animated)
	return true
}
