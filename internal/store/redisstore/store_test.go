package redisstore

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

func TestKeys(t *testing.T) {
	s := New(nil, "huddle", "random")
	assert.Equal(t, "huddle:random:messages", s.HashKey())
	assert.Equal(t, "huddle:random:changes", s.ChannelKey())
}

func TestDecodeHash(t *testing.T) {
	fields := map[string]string{
		"b":   `{"id":"b","createdAt":"2024-03-09T15:00:00Z","text":"hi","user":{"id":"bob"}}`,
		"a":   `{"id":"a","createdAt":"2024-03-09T15:00:00Z","text":"hi","user":{"id":"alice"}}`,
		"bad": `not json`,
	}

	records := decodeHash(fields)
	require.Len(t, records, 3)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
	assert.NoError(t, records[0].Validate())
	assert.ErrorIs(t, records[2].Validate(), chat.ErrMalformedRecord)
}

func TestDecodeHash_Empty(t *testing.T) {
	assert.Empty(t, decodeHash(nil))
}

// Integration tests need a disposable redis. Point HUDDLE_TEST_REDIS_ADDR at
// one to run them.
func testClient(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("HUDDLE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("HUDDLE_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := Dial(ctx, Options{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	s := New(client, "huddle-test-"+t.Name(), "random")
	t.Cleanup(func() { _ = client.Del(context.Background(), s.HashKey()).Err() })
	return s
}

func TestStore_Integration_SubscribeFollowsImports(t *testing.T) {
	s := testClient(t)
	ctx := context.Background()

	snaps := make(chan chat.Snapshot, 16)
	unsub, err := s.Subscribe(ctx, chat.OrderAscending, func(snap chat.Snapshot) { snaps <- snap })
	require.NoError(t, err)
	defer unsub()

	first := <-snaps
	require.NoError(t, first.Err)
	assert.Empty(t, first.Records)

	_, err = s.Import(ctx, []json.RawMessage{
		json.RawMessage(`{"id":"m1","createdAt":"2024-03-09T15:00:00Z","text":"hi","user":{"id":"alice"}}`),
	})
	require.NoError(t, err)

	select {
	case snap := <-snaps:
		require.NoError(t, snap.Err)
		require.Len(t, snap.Records, 1)
		assert.Equal(t, "m1", snap.Records[0].ID)
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot after import")
	}
}
