// Package thread turns store snapshots into an ordered, grouped conversation
// view and decides when that view follows the newest message.
package thread

import (
	"slices"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// List is an immutable message list sorted ascending by creation time.
type List struct {
	messages []chat.Message
}

// NewList sorts msgs (stable) into a List. msgs is copied.
func NewList(msgs []chat.Message) List {
	sorted := slices.Clone(msgs)
	slices.SortStableFunc(sorted, func(a, b chat.Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return List{messages: sorted}
}

// Len returns the number of messages.
func (l List) Len() int { return len(l.messages) }

// At returns the message at index i.
func (l List) At(i int) chat.Message { return l.messages[i] }

// Messages returns a copy of the ordered messages.
func (l List) Messages() []chat.Message { return slices.Clone(l.messages) }

// IDs returns message ids in order.
func (l List) IDs() []string {
	ids := make([]string, len(l.messages))
	for i, m := range l.messages {
		ids[i] = m.ID
	}
	return ids
}

// Reconciler maps raw snapshots to ordered lists.
type Reconciler struct {
	diag Diagnostics
}

// NewReconciler creates a reconciler reporting dropped records to diag. A nil
// diag discards reports.
func NewReconciler(diag Diagnostics) *Reconciler {
	if diag == nil {
		diag = NopDiagnostics{}
	}
	return &Reconciler{diag: diag}
}

// Reconcile builds a fresh List from the complete snapshot. Malformed records
// are dropped and reported; the rest are sorted ascending by creation time,
// keeping source order for equal timestamps. When the same id appears more
// than once the earliest occurrence in sorted order is kept.
func (r *Reconciler) Reconcile(snapshot []chat.RawMessage) List {
	valid := make([]chat.Message, 0, len(snapshot))
	for _, rec := range snapshot {
		if err := rec.Validate(); err != nil {
			r.diag.RecordDropped(rec, err)
			continue
		}
		valid = append(valid, rec.Message())
	}

	list := NewList(valid)

	seen := make(map[string]struct{}, len(list.messages))
	deduped := list.messages[:0]
	for _, m := range list.messages {
		if _, dup := seen[m.ID]; dup {
			r.diag.RecordDropped(chat.RawMessage{ID: m.ID}, chat.Malformed(chat.ErrDuplicateID))
			continue
		}
		seen[m.ID] = struct{}{}
		deduped = append(deduped, m)
	}

	return List{messages: deduped}
}
