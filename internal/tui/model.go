package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/hay-kot/huddle/internal/core/thread"
	"github.com/hay-kot/huddle/internal/styles"
)

// UIState represents the current state of the TUI.
type UIState int

const (
	stateNormal UIState = iota
	statePreviewing
)

// chrome is the number of rows outside the thread: title, divider and help.
const chrome = 3

// Room is the subscription lifecycle behind the view.
type Room interface {
	Activate(ctx context.Context) error
	Deactivate() error
}

// Options configures the TUI.
type Options struct {
	Title string
	// Viewer is shown in the header.
	Viewer string
	Room   Room
	Logger zerolog.Logger
}

// activatedMsg reports the outcome of Room.Activate.
type activatedMsg struct {
	err error
}

// Model is the main Bubble Tea model for the conversation view.
type Model struct {
	ctx    context.Context
	opts   Options
	log    zerolog.Logger
	keys   keyMap
	help   help.Model
	thread *ThreadView

	state   UIState
	preview PreviewModal

	// last view, kept for the preview timestamp and header count
	view thread.View
	err  error

	width  int
	height int
}

// New creates the model. The room is activated by Init so the first views
// reach a running program.
func New(ctx context.Context, opts Options) Model {
	h := help.New()
	h.ShortSeparator = " • "
	h.Styles.ShortKey = lipgloss.NewStyle().Foreground(styles.ColorGray)
	h.Styles.ShortDesc = lipgloss.NewStyle().Foreground(styles.ColorGray)
	h.Styles.ShortSeparator = lipgloss.NewStyle().Foreground(styles.ColorGray)

	return Model{
		ctx:    ctx,
		opts:   opts,
		log:    opts.Logger.With().Str("component", "tui").Logger(),
		keys:   defaultKeyMap(),
		help:   h,
		thread: NewThreadView(),
	}
}

// Init activates the room.
func (m Model) Init() tea.Cmd {
	if m.opts.Room == nil {
		return nil
	}
	room, ctx := m.opts.Room, m.ctx
	return func() tea.Msg {
		return activatedMsg{err: room.Activate(ctx)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.thread.SetSize(msg.Width, msg.Height-chrome)
		if m.state == statePreviewing {
			m.preview = m.openPreview()
		}
		return m, nil

	case ViewMsg:
		m.view = msg.View
		m.err = msg.View.Err
		m.thread.SetView(msg.View)
		return m, nil

	case activatedMsg:
		if msg.err != nil {
			m.log.Error().Err(msg.err).Msg("activate room")
			m.err = msg.err
		}
		return m, nil

	case tea.KeyMsg:
		if m.state == statePreviewing {
			return m.updatePreview(msg)
		}
		return m.updateNormal(msg)
	}

	return m, m.thread.Update(msg)
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.thread.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.thread.MoveDown()
	case key.Matches(msg, m.keys.Clear):
		m.thread.ClearSelection()
	case key.Matches(msg, m.keys.Bottom):
		m.thread.GotoBottom()
	case key.Matches(msg, m.keys.Open):
		if _, ok := m.thread.Selected(); ok {
			m.state = statePreviewing
			m.preview = m.openPreview()
		}
	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDwn):
		return m, m.thread.Update(msg)
	}
	return m, nil
}

func (m Model) updatePreview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Close):
		m.state = stateNormal
	case key.Matches(msg, m.keys.Up):
		m.preview.ScrollUp()
	case key.Matches(msg, m.keys.Down):
		m.preview.ScrollDown()
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) openPreview() PreviewModal {
	msg, _ := m.thread.Selected()

	timestamp := msg.CreatedAt.Format("2006-01-02 15:04")
	for i, candidate := range m.view.Messages {
		if candidate.ID == msg.ID && i < len(m.view.Attributes) {
			timestamp = msg.CreatedAt.Format("2006-01-02") + " " + m.view.Attributes[i].FormattedTime
			break
		}
	}
	return NewPreviewModal(msg, timestamp, m.width, m.height)
}

// View renders the TUI.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	if m.state == statePreviewing {
		return m.preview.Render(m.width, m.height)
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(styles.DividerStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")
	b.WriteString(m.thread.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.help())))
	return b.String()
}

func (m Model) header() string {
	title := titleStyle.Render(m.opts.Title)

	var status string
	switch {
	case m.err != nil:
		status = errorStyle.Render("⚠ " + describeError(m.err))
	default:
		n := len(m.view.Messages)
		status = statusStyle.Render(fmt.Sprintf("%d %s", n, plural(n, "message", "messages")))
		if m.opts.Viewer != "" {
			status += statusStyle.Render(" " + iconDot + " " + m.opts.Viewer)
		}
	}

	gap := max(m.width-lipgloss.Width(title)-lipgloss.Width(status)-1, 1)
	return title + strings.Repeat(" ", gap) + status
}

// describeError shortens the error for the header line.
func describeError(err error) string {
	var msg string
	switch {
	case errors.Is(err, thread.ErrAlreadyActive):
		msg = "room already open"
	default:
		msg = err.Error()
	}
	if len(msg) > 60 {
		msg = msg[:59] + "…"
	}
	return msg
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// guardedRoom serializes the activation done by Init with the deactivation
// done after the program exits, so a slow Activate cannot outlive Run.
type guardedRoom struct {
	mu     sync.Mutex
	room   Room
	closed bool
}

func (g *guardedRoom) Activate(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return context.Canceled
	}
	return g.room.Activate(ctx)
}

func (g *guardedRoom) Deactivate() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return g.room.Deactivate()
}

// Run starts the program and blocks until the user quits or ctx ends. The
// room is deactivated on the way out.
func Run(ctx context.Context, opts Options, presenter *Presenter, programOpts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var room *guardedRoom
	if opts.Room != nil {
		room = &guardedRoom{room: opts.Room}
		opts.Room = room
	}

	programOpts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, programOpts...)
	p := tea.NewProgram(New(ctx, opts), programOpts...)
	presenter.Attach(p)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}
	cancel()

	if room != nil {
		if derr := room.Deactivate(); derr != nil && !errors.Is(derr, thread.ErrNotActive) {
			err = errors.Join(err, derr)
		}
	}

	return err
}
