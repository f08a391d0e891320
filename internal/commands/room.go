package commands

import (
	"github.com/rs/zerolog"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/core/config"
	"github.com/hay-kot/huddle/internal/core/thread"
)

// roomParts are the collaborators a command hands to thread.NewRoom.
type roomParts struct {
	Transport   chat.Transport
	Viewer      string
	Presenter   thread.Presenter
	Diagnostics thread.Diagnostics
	Observer    thread.Observer
}

// newRoom wires a room for cfg. Stores are asked for newest-first snapshots;
// the engine re-sorts them.
func newRoom(cfg *config.Config, parts roomParts, log zerolog.Logger) (*thread.Room, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	diag := parts.Diagnostics
	if diag == nil {
		diag = thread.LogDiagnostics{Logger: log}
	}

	return thread.NewRoom(parts.Transport, thread.StaticViewer(parts.Viewer), parts.Presenter, thread.RoomOptions{
		Order:       chat.OrderDescending,
		Formatter:   thread.NewTimeFormatter(cfg.Locale, loc),
		Diagnostics: diag,
		Observer:    parts.Observer,
		Logger:      log.With().Str("component", "room").Str("room", cfg.Room.Name).Logger(),
	}), nil
}
