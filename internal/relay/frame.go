package relay

import (
	"encoding/json"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// Frame is one websocket text message: the full room snapshot, or the error
// that prevented one.
type Frame struct {
	Room     string            `json:"room"`
	Messages []json.RawMessage `json:"messages"`
	Error    string            `json:"error,omitempty"`
}

// NewFrame encodes snap for room.
func NewFrame(room string, snap chat.Snapshot) (Frame, error) {
	f := Frame{Room: room, Messages: []json.RawMessage{}}
	if snap.Err != nil {
		f.Error = snap.Err.Error()
		return f, nil
	}

	for _, rec := range snap.Records {
		data, err := json.Marshal(rec)
		if err != nil {
			return Frame{}, err
		}
		f.Messages = append(f.Messages, data)
	}
	return f, nil
}
