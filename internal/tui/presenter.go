package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hay-kot/huddle/internal/core/thread"
)

// ViewMsg carries a room view into the Bubble Tea event loop.
type ViewMsg struct {
	View thread.View
}

// Sender is the part of *tea.Program the presenter needs.
type Sender interface {
	Send(tea.Msg)
}

// Presenter forwards room views to a running program. Views presented before
// Attach are dropped, so the room must be activated from inside the program
// (see Model.Init).
type Presenter struct {
	mu     sync.RWMutex
	target Sender
}

var _ thread.Presenter = (*Presenter)(nil)

// Attach sets the program views are sent to.
func (p *Presenter) Attach(s Sender) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.target = s
}

// Present implements thread.Presenter.
func (p *Presenter) Present(v thread.View) {
	p.mu.RLock()
	target := p.target
	p.mu.RUnlock()

	if target != nil {
		target.Send(ViewMsg{View: v})
	}
}
