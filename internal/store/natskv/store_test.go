package natskv

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// Integration tests need a JetStream enabled server. Point
// HUDDLE_TEST_NATS_URL at one to run them.
func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("HUDDLE_TEST_NATS_URL")
	if url == "" {
		t.Skip("HUDDLE_TEST_NATS_URL not set")
	}

	conn, kv, err := Connect(Options{URL: url, Bucket: "huddle_test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Drain() })

	return New(kv, "it"+time.Now().Format("150405000"))
}

func TestStore_Integration_SnapshotAfterInitialValues(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Import(ctx, []json.RawMessage{json.RawMessage(recA)})
	require.NoError(t, err)

	snaps := make(chan chat.Snapshot, 16)
	unsub, err := s.Subscribe(ctx, chat.OrderAscending, func(snap chat.Snapshot) { snaps <- snap })
	require.NoError(t, err)
	defer unsub()

	first := <-snaps
	require.NoError(t, first.Err)
	require.Len(t, first.Records, 1)

	_, err = s.Import(ctx, []json.RawMessage{json.RawMessage(recB)})
	require.NoError(t, err)

	select {
	case snap := <-snaps:
		assert.Len(t, snap.Records, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot after put")
	}

	records, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
