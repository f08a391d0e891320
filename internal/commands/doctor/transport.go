package doctor

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/core/thread"
)

const defaultTransportTimeout = 5 * time.Second

// TransportCheck subscribes to the room store, waits for the first snapshot
// and reconciles it to report how many records would be dropped.
type TransportCheck struct {
	transport chat.Transport
	kind      string
	room      string
	timeout   time.Duration
}

func NewTransportCheck(transport chat.Transport, kind, room string) *TransportCheck {
	return &TransportCheck{transport: transport, kind: kind, room: room, timeout: defaultTransportTimeout}
}

// WithTimeout sets how long Run waits for the first snapshot.
func (c *TransportCheck) WithTimeout(d time.Duration) *TransportCheck {
	if d > 0 {
		c.timeout = d
	}
	return c
}

func (c *TransportCheck) Name() string { return "Room Store" }

func (c *TransportCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}
	label := c.kind + " " + c.room

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	first := make(chan chat.Snapshot, 1)
	unsub, err := c.transport.Subscribe(ctx, chat.OrderAscending, func(s chat.Snapshot) {
		select {
		case first <- s:
		default:
		}
	})
	if err != nil {
		result.add(label, StatusFail, err.Error())
		return result
	}
	defer unsub()

	var snap chat.Snapshot
	select {
	case snap = <-first:
	case <-ctx.Done():
		result.add(label, StatusFail, fmt.Sprintf("no snapshot within %s", c.timeout))
		return result
	}

	if snap.Err != nil {
		result.add(label, StatusFail, snap.Err.Error())
		return result
	}

	dropped := &dropCounter{reasons: map[string]int{}}
	list := thread.NewReconciler(dropped).Reconcile(snap.Records)
	result.add(label, StatusPass, fmt.Sprintf("%d %s", list.Len(), pluralize(list.Len(), "message")))

	for _, reason := range slices.Sorted(maps.Keys(dropped.reasons)) {
		n := dropped.reasons[reason]
		result.add("dropped: "+reason, StatusWarn, fmt.Sprintf("%d %s skipped by the view", n, pluralize(n, "record")))
	}
	return result
}

type dropCounter struct {
	reasons map[string]int
}

func (d *dropCounter) RecordDropped(_ chat.RawMessage, reason error) {
	d.reasons[thread.DropReason(reason)]++
}

func pluralize(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
