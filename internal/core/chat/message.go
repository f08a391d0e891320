// Package chat defines the message types exchanged between a room transport
// and the thread engine.
package chat

import "time"

// Author identifies the participant who wrote a message.
type Author struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Message is a validated chat message. Messages are never mutated once
// built from a raw record.
type Message struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Text      string    `json:"text"`
	Author    Author    `json:"author"`
}

// ViewerID is the identity of the locally authenticated participant. It is
// only ever compared against Author.ID.
type ViewerID string

// Owns reports whether msg was written by the viewer.
func (v ViewerID) Owns(msg Message) bool {
	return v != "" && string(v) == msg.Author.ID
}
