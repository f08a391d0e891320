package thread

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// Diagnostics receives records the reconciler could not use.
type Diagnostics interface {
	RecordDropped(rec chat.RawMessage, reason error)
}

// NopDiagnostics discards every report.
type NopDiagnostics struct{}

func (NopDiagnostics) RecordDropped(chat.RawMessage, error) {}

// LogDiagnostics logs dropped records at warn level.
type LogDiagnostics struct {
	Logger zerolog.Logger
}

func (d LogDiagnostics) RecordDropped(rec chat.RawMessage, reason error) {
	d.Logger.Warn().
		Str("record_id", rec.ID).
		Str("reason", DropReason(reason)).
		Err(reason).
		Msg("dropped malformed record")
}

// MultiDiagnostics fans a report out to every sink.
type MultiDiagnostics []Diagnostics

func (m MultiDiagnostics) RecordDropped(rec chat.RawMessage, reason error) {
	for _, d := range m {
		d.RecordDropped(rec, reason)
	}
}

// DropReason maps a drop error to a short label suitable for metrics.
func DropReason(err error) string {
	switch {
	case errors.Is(err, chat.ErrDuplicateID):
		return "duplicate_id"
	case errors.Is(err, chat.ErrMissingID):
		return "missing_id"
	case errors.Is(err, chat.ErrMissingCreatedAt):
		return "missing_created_at"
	case errors.Is(err, chat.ErrInvalidCreatedAt):
		return "invalid_created_at"
	case errors.Is(err, chat.ErrMissingAuthor):
		return "missing_author"
	default:
		return "decode"
	}
}
