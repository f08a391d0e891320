package natskv

import (
	"slices"

	nats "github.com/nats-io/nats.go"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// recordSet is the watcher-side view of a room. The zero value is empty.
type recordSet struct {
	byKey map[string][]byte
}

// apply folds one watch entry into the set and reports whether it changed.
func (r *recordSet) apply(key string, value []byte, op nats.KeyValueOp) bool {
	switch op {
	case nats.KeyValueDelete, nats.KeyValuePurge:
		if _, ok := r.byKey[key]; !ok {
			return false
		}
		delete(r.byKey, key)
		return true
	default:
		if r.byKey == nil {
			r.byKey = make(map[string][]byte)
		}
		r.byKey[key] = slices.Clone(value)
		return true
	}
}

// records decodes the set in key order.
func (r *recordSet) records() []chat.RawMessage {
	keys := make([]string, 0, len(r.byKey))
	for k := range r.byKey {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]chat.RawMessage, 0, len(keys))
	for _, k := range keys {
		out = append(out, chat.DecodeRawMessage(r.byKey[k]))
	}
	return out
}

func (r *recordSet) len() int { return len(r.byKey) }
