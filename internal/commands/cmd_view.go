package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/huddle/internal/tui"
)

type ViewCmd struct {
	flags *Flags
}

// NewViewCmd creates the interactive conversation view. It is the default
// action of the root command.
func NewViewCmd(flags *Flags) *ViewCmd {
	return &ViewCmd{flags: flags}
}

// Register adds `huddle view` to the application.
func (cmd *ViewCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "view",
		Usage:       "Open the conversation view (default)",
		UsageText:   "huddle view",
		Description: "Follows the configured room and renders it as a chat thread. Own messages are shown on the right.",
		Action:      cmd.Run,
	})
	return app
}

// Run executes the view. Exported for use as the default action.
func (cmd *ViewCmd) Run(ctx context.Context, _ *cli.Command) error {
	cfg := cmd.flags.Config
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	if !interactive {
		return fmt.Errorf("the conversation view needs a terminal; use 'huddle dump' instead")
	}

	viewer := cfg.Viewer
	if viewer == "" {
		var err error
		viewer, err = tui.PromptViewer(cfg.Room.Name)
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("prompt viewer: %w", err)
		}
	}

	logger := log.Logger
	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Transport.Kind, err)
	}
	defer func() { _ = b.Close() }()

	presenter := &tui.Presenter{}
	room, err := newRoom(cfg, roomParts{
		Transport: b.Transport,
		Viewer:    viewer,
		Presenter: presenter,
	}, logger)
	if err != nil {
		return err
	}

	opts := tui.Options{
		Title:  cfg.RoomTitle(),
		Viewer: viewer,
		Room:   room,
		Logger: logger,
	}
	if err := tui.Run(ctx, opts, presenter); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
