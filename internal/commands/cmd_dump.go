package commands

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/core/thread"
	"github.com/hay-kot/huddle/internal/printer"
	"github.com/hay-kot/huddle/internal/styles"
	"github.com/hay-kot/huddle/pkg/tmpl"
)

const (
	formatAuto     = "auto"
	formatText     = "text"
	formatJSON     = "json"
	formatTemplate = "template"
)

type DumpCmd struct {
	flags    *Flags
	format   string
	follow   bool
	timeout  time.Duration
	template string
}

// NewDumpCmd creates the non-interactive room printer.
func NewDumpCmd(flags *Flags) *DumpCmd {
	return &DumpCmd{flags: flags}
}

// Register adds `huddle dump` to the application.
func (cmd *DumpCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "dump",
		Usage:     "Print the reconciled conversation",
		UsageText: "huddle dump [options]",
		Description: `Subscribes to the room, prints the first snapshot and exits. With --follow
every later snapshot is printed too. Text output groups consecutive messages
by author; json output writes one object per snapshot.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (auto, text, json); auto picks text on a terminal",
				Value:       formatAuto,
				Destination: &cmd.format,
			},
			&cli.StringFlag{
				Name:        "template",
				Usage:       "render each message with a Go template, e.g. '{{ .Time }} {{ .Author }}: {{ oneline .Text }}'",
				Destination: &cmd.template,
			},
			&cli.BoolFlag{
				Name:        "follow",
				Aliases:     []string{"f"},
				Usage:       "keep printing snapshots until interrupted",
				Destination: &cmd.follow,
			},
			&cli.DurationFlag{
				Name:        "timeout",
				Usage:       "how long to wait for the first snapshot",
				Value:       10 * time.Second,
				Destination: &cmd.timeout,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *DumpCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	out := c.Root().Writer
	w := &viewWriter{out: out, room: cfg.Room.Name}
	if cmd.template != "" {
		t, err := tmpl.Compile(cmd.template)
		if err != nil {
			return err
		}
		w.format, w.line = formatTemplate, t
	} else {
		format, err := resolveFormat(cmd.format, out)
		if err != nil {
			return err
		}
		w.format = format
	}

	b, err := openBackend(ctx, cfg, log.Logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Transport.Kind, err)
	}
	defer func() { _ = b.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	views := make(chan thread.View, 8)
	presenter := thread.PresenterFunc(func(v thread.View) {
		select {
		case views <- v:
		case <-ctx.Done():
		}
	})

	room, err := newRoom(cfg, roomParts{
		Transport: b.Transport,
		Viewer:    cfg.Viewer,
		Presenter: presenter,
	}, log.Logger)
	if err != nil {
		return err
	}

	if err := room.Activate(ctx); err != nil {
		return err
	}
	defer func() {
		cancel()
		_ = room.Deactivate()
	}()

	// The first view is the mount view presented before subscribing.
	<-views

	p := printer.Ctx(ctx)

	select {
	case v := <-views:
		if err := w.write(v); err != nil {
			return err
		}
		if v.Err != nil && !cmd.follow {
			return v.Err
		}
	case <-time.After(cmd.timeout):
		return fmt.Errorf("no snapshot from %s store within %s", cfg.Transport.Kind, cmd.timeout)
	case <-ctx.Done():
		return nil
	}

	if !cmd.follow {
		return nil
	}

	for {
		select {
		case v := <-views:
			if v.Err != nil {
				p.Warnf("delivery failed: %v", v.Err)
			}
			if err := w.write(v); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func resolveFormat(format string, out io.Writer) (string, error) {
	switch format {
	case formatText, formatJSON:
		return format, nil
	case formatAuto, "":
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return formatText, nil
		}
		return formatJSON, nil
	}
	return "", fmt.Errorf("unknown format %q (want auto, text or json)", format)
}

// viewWriter prints room views.
type viewWriter struct {
	out     io.Writer
	format  string
	room    string
	line    *tmpl.Template
	written int
}

// lineData is the value a --template line is executed with.
type lineData struct {
	Room      string
	ID        string
	Author    string
	AuthorID  string
	Text      string
	Time      string
	CreatedAt time.Time
	Own       bool
	First     bool
	Last      bool
}

type viewJSON struct {
	Room       string                   `json:"room"`
	Messages   []chat.Message           `json:"messages"`
	Attributes []thread.GroupAttributes `json:"attributes"`
	Error      string                   `json:"error,omitempty"`
}

func (w *viewWriter) write(v thread.View) error {
	defer func() { w.written++ }()

	if w.format == formatJSON {
		out := viewJSON{
			Room:       w.room,
			Messages:   v.Messages,
			Attributes: v.Attributes,
		}
		if out.Messages == nil {
			out.Messages = []chat.Message{}
			out.Attributes = []thread.GroupAttributes{}
		}
		if v.Err != nil {
			out.Error = v.Err.Error()
		}
		return json.NewEncoder(w.out).Encode(out)
	}

	if w.format == formatTemplate {
		return w.lines(v)
	}

	_, err := io.WriteString(w.out, w.text(v))
	return err
}

func (w *viewWriter) lines(v thread.View) error {
	if v.Err != nil {
		if _, err := fmt.Fprintf(w.out, "! %v\n", v.Err); err != nil {
			return err
		}
	}
	for i, msg := range v.Messages {
		attr := v.Attributes[i]
		line, err := w.line.Execute(lineData{
			Room:      w.room,
			ID:        msg.ID,
			Author:    cmp.Or(msg.Author.Name, msg.Author.ID),
			AuthorID:  msg.Author.ID,
			Text:      msg.Text,
			Time:      attr.FormattedTime,
			CreatedAt: msg.CreatedAt,
			Own:       attr.IsOwnMessage,
			First:     attr.IsFirstInGroup,
			Last:      attr.IsLastInGroup,
		})
		if err != nil {
			return err
		}
		if !strings.HasSuffix(line, "\n") {
			line += "\n"
		}
		if _, err := io.WriteString(w.out, line); err != nil {
			return err
		}
	}
	return nil
}

// text renders v the way the thread groups it: an author line per group,
// one indented line per message and a blank line between groups.
func (w *viewWriter) text(v thread.View) string {
	r := lipgloss.NewRenderer(w.out)
	muted := styles.MutedStyle.Renderer(r)

	var b strings.Builder
	if w.written > 0 {
		b.WriteString(muted.Render(strings.Repeat("─", 40)) + "\n")
	}
	if v.Err != nil {
		b.WriteString(styles.ErrorStyle.Renderer(r).Render("! "+v.Err.Error()) + "\n")
	}
	if len(v.Messages) == 0 {
		b.WriteString(muted.Render("(no messages)") + "\n")
		return b.String()
	}

	for i, msg := range v.Messages {
		attr := v.Attributes[i]
		if attr.IsFirstInGroup {
			name := cmp.Or(msg.Author.Name, msg.Author.ID)
			if attr.IsOwnMessage {
				name += " (you)"
			}
			author := r.NewStyle().Bold(true).Foreground(styles.ColorForString(msg.Author.ID))
			b.WriteString(author.Render(name) + "\n")
		}

		for j, line := range strings.Split(msg.Text, "\n") {
			prefix := "  "
			if j == 0 {
				prefix = "  " + muted.Render(fmt.Sprintf("%8s", attr.FormattedTime)) + "  "
			} else {
				prefix += strings.Repeat(" ", 10)
			}
			b.WriteString(prefix + line + "\n")
		}

		if attr.IsLastInGroup && i < len(v.Messages)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
