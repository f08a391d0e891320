package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/hay-kot/huddle/internal/core/chat"
)

func TestMetrics_Observer(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SubscriptionOpened()
	m.SnapshotApplied(3)
	m.SnapshotApplied(5)

	assert.InDelta(t, 1, testutil.ToFloat64(m.subscriptions), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.snapshots), 0)
	assert.InDelta(t, 5, testutil.ToFloat64(m.messagesInView), 0)

	m.SubscriptionClosed()
	assert.InDelta(t, 0, testutil.ToFloat64(m.subscriptions), 0)
}

func TestMetrics_RecordDropped(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordDropped(chat.RawMessage{ID: "a"}, chat.Malformed(chat.ErrMissingCreatedAt))
	m.RecordDropped(chat.RawMessage{ID: "b"}, chat.Malformed(chat.ErrMissingCreatedAt))
	m.RecordDropped(chat.RawMessage{ID: "c"}, chat.Malformed(chat.ErrDuplicateID))

	assert.InDelta(t, 2, testutil.ToFloat64(m.dropped.WithLabelValues("missing_created_at")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.dropped.WithLabelValues("duplicate_id")), 0)
}

func TestMetrics_RelayClients(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ClientConnected()
	m.ClientConnected()
	m.ClientDisconnected()

	assert.InDelta(t, 1, testutil.ToFloat64(m.relayClients), 0)

	count, err := testutil.GatherAndCount(reg, "huddle_relay_clients")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
