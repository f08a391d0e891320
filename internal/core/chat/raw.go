package chat

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMalformedRecord  = errors.New("malformed record")
	ErrMissingID        = errors.New("missing id")
	ErrMissingCreatedAt = errors.New("missing createdAt")
	ErrInvalidCreatedAt = errors.New("invalid createdAt")
	ErrMissingAuthor    = errors.New("missing author")
	ErrDuplicateID      = errors.New("duplicate id")
)

// Malformed wraps cause so that errors.Is matches both ErrMalformedRecord and
// the specific cause.
func Malformed(cause error) error {
	return fmt.Errorf("%w: %w", ErrMalformedRecord, cause)
}

// Timestamp is a creation instant as reported by a store. It decodes from an
// RFC 3339 string, a number of unix milliseconds or a
// {"seconds": n, "nanoseconds": n} object.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t}
}

// MarshalJSON encodes the timestamp as RFC 3339 with nanoseconds.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrInvalidCreatedAt
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCreatedAt, err)
		}
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCreatedAt, err)
		}
		ts.Time = t
		return nil
	case '{':
		var parts struct {
			Seconds     *int64 `json:"seconds"`
			Nanoseconds int64  `json:"nanoseconds"`
		}
		if err := json.Unmarshal(data, &parts); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCreatedAt, err)
		}
		if parts.Seconds == nil {
			return fmt.Errorf("%w: object without seconds", ErrInvalidCreatedAt)
		}
		ts.Time = time.Unix(*parts.Seconds, parts.Nanoseconds)
		return nil
	default:
		var millis json.Number
		if err := json.Unmarshal(data, &millis); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCreatedAt, err)
		}
		n, err := millis.Int64()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCreatedAt, err)
		}
		ts.Time = time.UnixMilli(n)
		return nil
	}
}

// RawUser is the author block of a raw record.
type RawUser struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// UnmarshalJSON accepts both "id" and "_id".
func (u *RawUser) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID     string `json:"id"`
		AltID  string `json:"_id"`
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	u.ID = cmp.Or(aux.ID, aux.AltID)
	u.Name = aux.Name
	u.Avatar = aux.Avatar
	return nil
}

// RawMessage is a record as delivered by a transport, before validation.
// A nil CreatedAt or User means the field was absent.
type RawMessage struct {
	ID        string     `json:"id"`
	CreatedAt *Timestamp `json:"createdAt,omitempty"`
	Text      string     `json:"text"`
	User      *RawUser   `json:"user,omitempty"`

	decodeErr error
}

// UnmarshalJSON accepts both "id" and "_id" for the record id.
func (r *RawMessage) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID        string     `json:"id"`
		AltID     string     `json:"_id"`
		CreatedAt *Timestamp `json:"createdAt"`
		Text      string     `json:"text"`
		User      *RawUser   `json:"user"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*r = RawMessage{
		ID:        cmp.Or(aux.ID, aux.AltID),
		CreatedAt: aux.CreatedAt,
		Text:      aux.Text,
		User:      aux.User,
	}
	return nil
}

// DecodeRawMessage decodes a single record. It never fails: a decode error is
// kept on the record and returned by Validate, so one bad record cannot
// poison a whole snapshot.
func DecodeRawMessage(data []byte) RawMessage {
	var r RawMessage
	if err := json.Unmarshal(data, &r); err != nil {
		// Salvage the id for diagnostics.
		var probe struct {
			ID    string `json:"id"`
			AltID string `json:"_id"`
		}
		_ = json.Unmarshal(data, &probe)

		cause := err
		if !errors.Is(err, ErrInvalidCreatedAt) {
			cause = fmt.Errorf("decode record: %w", err)
		}
		return RawMessage{ID: cmp.Or(probe.ID, probe.AltID), decodeErr: cause}
	}
	return r
}

// DecodeRawMessages decodes each element of records with DecodeRawMessage.
func DecodeRawMessages(records []json.RawMessage) []RawMessage {
	out := make([]RawMessage, 0, len(records))
	for _, rec := range records {
		out = append(out, DecodeRawMessage(rec))
	}
	return out
}

// Validate reports why the record cannot become a Message. The returned error
// wraps ErrMalformedRecord.
func (r RawMessage) Validate() error {
	switch {
	case r.decodeErr != nil:
		return Malformed(r.decodeErr)
	case strings.TrimSpace(r.ID) == "":
		return Malformed(ErrMissingID)
	case r.CreatedAt == nil:
		return Malformed(ErrMissingCreatedAt)
	case r.CreatedAt.IsZero():
		return Malformed(ErrInvalidCreatedAt)
	case r.User == nil || strings.TrimSpace(r.User.ID) == "":
		return Malformed(ErrMissingAuthor)
	}
	return nil
}

// Message converts a valid record. Callers must check Validate first.
func (r RawMessage) Message() Message {
	return Message{
		ID:        r.ID,
		CreatedAt: r.CreatedAt.Time,
		Text:      r.Text,
		Author: Author{
			ID:     r.User.ID,
			Name:   r.User.Name,
			Avatar: r.User.Avatar,
		},
	}
}
