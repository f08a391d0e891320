package thread

import "github.com/hay-kot/huddle/internal/core/chat"

// Align is the side of the view a message bubble sits on.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

func (a Align) String() string {
	if a == AlignRight {
		return "right"
	}
	return "left"
}

func (a Align) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// GroupAttributes are the per-message display attributes derived from a List
// and the viewer. They are recomputed on every change and never stored.
type GroupAttributes struct {
	IsOwnMessage   bool   `json:"is_own_message"`
	IsFirstInGroup bool   `json:"is_first_in_group"`
	IsLastInGroup  bool   `json:"is_last_in_group"`
	FormattedTime  string `json:"formatted_time"`
	Align          Align  `json:"align"`
	// ShowAvatar marks the message that carries the author's avatar: the last
	// message of a group written by someone else.
	ShowAvatar bool `json:"show_avatar"`
}

// Grouper computes GroupAttributes.
type Grouper struct {
	fmt TimeFormatter
}

// NewGrouper creates a grouper formatting times with f.
func NewGrouper(f TimeFormatter) *Grouper {
	return &Grouper{fmt: f}
}

// Compute returns attributes index-aligned with list. Groups are runs of
// consecutive messages by the same author; a time gap does not split a group.
func (g *Grouper) Compute(list List, viewer chat.ViewerID) []GroupAttributes {
	n := list.Len()
	attrs := make([]GroupAttributes, n)

	for i := range n {
		msg := list.At(i)
		own := viewer.Owns(msg)
		first := i == 0 || list.At(i-1).Author.ID != msg.Author.ID
		last := i == n-1 || list.At(i+1).Author.ID != msg.Author.ID

		align := AlignLeft
		if own {
			align = AlignRight
		}

		attrs[i] = GroupAttributes{
			IsOwnMessage:   own,
			IsFirstInGroup: first,
			IsLastInGroup:  last,
			FormattedTime:  g.fmt.Format(msg.CreatedAt),
			Align:          align,
			ShowAvatar:     !own && last,
		}
	}

	return attrs
}
