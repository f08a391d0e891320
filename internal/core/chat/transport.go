package chat

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/google/uuid"
)

// ErrTransport marks subscription setup and delivery failures.
var ErrTransport = errors.New("transport failure")

// Order is the criterion a transport is asked to order snapshots by. The
// thread engine re-sorts every snapshot, so it is advisory only.
type Order int

const (
	OrderAscending Order = iota
	OrderDescending
)

func (o Order) String() string {
	if o == OrderDescending {
		return "desc"
	}
	return "asc"
}

// Sort orders records in place by creation time in direction o. Records
// without a usable creation time sort last in either direction; ties keep
// their relative order.
func (o Order) Sort(records []RawMessage) {
	slices.SortStableFunc(records, func(a, b RawMessage) int {
		aok, bok := a.hasTime(), b.hasTime()
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		}
		c := a.CreatedAt.Compare(b.CreatedAt.Time)
		if o == OrderDescending {
			return -c
		}
		return c
	})
}

func (r RawMessage) hasTime() bool {
	return r.CreatedAt != nil && !r.CreatedAt.IsZero()
}

// Snapshot is the full set of records known to the store at one point in
// time. A non-nil Err reports a delivery failure; Records is then empty.
type Snapshot struct {
	Records []RawMessage
	Err     error
}

// SnapshotFunc receives snapshots from a subscription.
type SnapshotFunc func(Snapshot)

// Unsubscribe tears a subscription down. Implementations are idempotent and
// synchronous: once it returns, no further SnapshotFunc call is made.
type Unsubscribe func()

// Transport is an ordered message collection that pushes a full snapshot on
// every change.
type Transport interface {
	// Subscribe registers fn for the room and delivers the current snapshot
	// as soon as it is known. The returned error wraps ErrTransport.
	Subscribe(ctx context.Context, order Order, fn SnapshotFunc) (Unsubscribe, error)
}

// TransportError wraps err with ErrTransport.
func TransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &transportError{op: op, err: err}
}

type transportError struct {
	op  string
	err error
}

func (e *transportError) Error() string {
	return ErrTransport.Error() + ": " + e.op + ": " + e.err.Error()
}

func (e *transportError) Unwrap() []error {
	return []error{ErrTransport, e.err}
}

// Importer bulk-loads raw records into a store. Records are stored verbatim,
// malformed ones included, so they surface through diagnostics on read.
type Importer interface {
	Import(ctx context.Context, records []json.RawMessage) (int, error)
}

// RecordKey returns the storage key for a raw record: its id when it has one,
// otherwise a fresh UUID so the record can still be stored and later
// reported as malformed.
func RecordKey(data json.RawMessage) string {
	var probe struct {
		ID    string `json:"id"`
		AltID string `json:"_id"`
	}
	_ = json.Unmarshal(data, &probe)
	if id := cmp.Or(probe.ID, probe.AltID); id != "" {
		return id
	}
	return uuid.NewString()
}
