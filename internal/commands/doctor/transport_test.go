package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// fakeTransport delivers snap on subscribe, or nothing when silent is set.
type fakeTransport struct {
	snap   chat.Snapshot
	err    error
	silent bool
	closed bool
}

func (f *fakeTransport) Subscribe(_ context.Context, _ chat.Order, fn chat.SnapshotFunc) (chat.Unsubscribe, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !f.silent {
		fn(f.snap)
	}
	return func() { f.closed = true }, nil
}

func raw(t *testing.T, body string) chat.RawMessage {
	t.Helper()
	msgs := chat.DecodeRawMessages([]json.RawMessage{json.RawMessage(body)})
	require.Len(t, msgs, 1)
	return msgs[0]
}

func TestTransportCheck_CountsMessagesAndDrops(t *testing.T) {
	ft := &fakeTransport{snap: chat.Snapshot{Records: []chat.RawMessage{
		raw(t, `{"id":"m1","createdAt":"2024-03-09T15:00:00Z","text":"hi","user":{"id":"alice"}}`),
		raw(t, `{"id":"m2","createdAt":"2024-03-09T15:01:00Z","text":"yo","user":{"id":"bob"}}`),
		raw(t, `{"id":"m3","text":"no time","user":{"id":"bob"}}`),
	}}}

	res := NewTransportCheck(ft, "jsonfile", "random").Run(context.Background())

	require.Len(t, res.Items, 2)
	assert.Equal(t, "jsonfile random", res.Items[0].Label)
	assert.Equal(t, StatusPass, res.Items[0].Status)
	assert.Equal(t, "2 messages", res.Items[0].Detail)
	assert.Equal(t, "dropped: missing_created_at", res.Items[1].Label)
	assert.Equal(t, StatusWarn, res.Items[1].Status)
	assert.True(t, ft.closed)
}

func TestTransportCheck_SubscribeFails(t *testing.T) {
	ft := &fakeTransport{err: chat.TransportError("dial", errors.New("refused"))}

	res := NewTransportCheck(ft, "redis", "random").Run(context.Background())

	require.Len(t, res.Items, 1)
	assert.Equal(t, StatusFail, res.Items[0].Status)
	assert.Contains(t, res.Items[0].Detail, "refused")
}

func TestTransportCheck_SnapshotError(t *testing.T) {
	ft := &fakeTransport{snap: chat.Snapshot{Err: chat.TransportError("load room", errors.New("corrupt"))}}

	res := NewTransportCheck(ft, "jsonfile", "random").Run(context.Background())

	require.Len(t, res.Items, 1)
	assert.Equal(t, StatusFail, res.Items[0].Status)
	assert.Contains(t, res.Items[0].Detail, "corrupt")
}

func TestTransportCheck_Timeout(t *testing.T) {
	ft := &fakeTransport{silent: true}

	res := NewTransportCheck(ft, "nats", "random").WithTimeout(20 * time.Millisecond).Run(context.Background())

	require.Len(t, res.Items, 1)
	assert.Equal(t, StatusFail, res.Items[0].Status)
	assert.Contains(t, res.Items[0].Detail, "no snapshot within")
}
