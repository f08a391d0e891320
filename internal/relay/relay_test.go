package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/core/thread"
	"github.com/hay-kot/huddle/internal/metrics"
)

var t0 = time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)

func rec(id, author string, offset time.Duration) chat.RawMessage {
	return chat.RawMessage{
		ID:        id,
		CreatedAt: chat.NewTimestamp(t0.Add(offset)),
		Text:      "hi from " + author,
		User:      &chat.RawUser{ID: author},
	}
}

// pushTransport hands the hub an initial snapshot and lets tests push more.
type pushTransport struct {
	mu         sync.Mutex
	fn         chat.SnapshotFunc
	initial    chat.Snapshot
	subscribed chan struct{}
	subscribes int
}

func newPushTransport(initial chat.Snapshot) *pushTransport {
	return &pushTransport{initial: initial, subscribed: make(chan struct{})}
}

func (p *pushTransport) Subscribe(_ context.Context, _ chat.Order, fn chat.SnapshotFunc) (chat.Unsubscribe, error) {
	p.mu.Lock()
	p.fn = fn
	p.subscribes++
	p.mu.Unlock()

	fn(p.initial)
	close(p.subscribed)
	return func() {
		p.mu.Lock()
		p.fn = nil
		p.mu.Unlock()
	}, nil
}

func (p *pushTransport) push(s chat.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fn != nil {
		p.fn(s)
	}
}

type failingTransport struct{}

func (failingTransport) Subscribe(context.Context, chat.Order, chat.SnapshotFunc) (chat.Unsubscribe, error) {
	return nil, chat.TransportError("dial", errors.New("connection refused"))
}

type harness struct {
	transport *pushTransport
	hub       *Hub
	server    *httptest.Server
	registry  *prometheus.Registry
}

func startRelay(t *testing.T, initial chat.Snapshot) *harness {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	tr := newPushTransport(initial)
	hub := NewHub("random", tr, m, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Run(ctx)
	}()

	srv := httptest.NewServer(NewRouter(hub, reg, zerolog.Nop()))
	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
	})

	select {
	case <-tr.subscribed:
	case <-time.After(5 * time.Second):
		t.Fatal("hub never subscribed")
	}

	return &harness{transport: tr, hub: hub, server: srv, registry: reg}
}

func (h *harness) dial(t *testing.T, room string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws?room=" + room
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads frames until pred matches or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, pred func(Frame) bool) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var f Frame
		require.NoError(t, json.Unmarshal(data, &f))
		if pred(f) {
			return f
		}
	}
}

func TestNewFrame(t *testing.T) {
	f, err := NewFrame("random", chat.Snapshot{Records: []chat.RawMessage{rec("m1", "alice", 0)}})
	require.NoError(t, err)
	assert.Equal(t, "random", f.Room)
	require.Len(t, f.Messages, 1)
	assert.Empty(t, f.Error)

	back := chat.DecodeRawMessage(f.Messages[0])
	require.NoError(t, back.Validate())
	assert.Equal(t, "m1", back.ID)
	assert.True(t, back.CreatedAt.Equal(t0))
}

func TestNewFrame_Error(t *testing.T) {
	f, err := NewFrame("random", chat.Snapshot{Err: errors.New("store offline")})
	require.NoError(t, err)
	assert.Equal(t, "store offline", f.Error)
	assert.NotNil(t, f.Messages, "messages encode as [] rather than null")
}

func TestOffer_ReplacesPendingFrame(t *testing.T) {
	ch := make(chan []byte, 1)
	offer(ch, []byte("one"))
	offer(ch, []byte("two"))

	assert.Equal(t, "two", string(<-ch))
	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra frame %q", extra)
	default:
	}
}

func TestRelay_Healthz(t *testing.T) {
	h := startRelay(t, chat.Snapshot{})

	resp, err := http.Get(h.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status  string `json:"status"`
		Room    string `json:"room"`
		Clients int    `json:"clients"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "random", body.Room)
	assert.Equal(t, 0, body.Clients)
}

func TestRelay_UnknownRoom(t *testing.T) {
	h := startRelay(t, chat.Snapshot{})

	resp, err := http.Get(h.server.URL + "/ws?room=general")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRelay_LatestOnConnectThenBroadcast(t *testing.T) {
	h := startRelay(t, chat.Snapshot{Records: []chat.RawMessage{rec("m1", "alice", 0)}})

	conn := h.dial(t, "random")

	first := readUntil(t, conn, func(Frame) bool { return true })
	assert.Equal(t, "random", first.Room)
	require.Len(t, first.Messages, 1)

	h.transport.push(chat.Snapshot{Records: []chat.RawMessage{
		rec("m1", "alice", 0),
		rec("m2", "bob", time.Minute),
	}})

	next := readUntil(t, conn, func(f Frame) bool { return len(f.Messages) == 2 })
	assert.Equal(t, "m2", chat.DecodeRawMessage(next.Messages[1]).ID)
}

func TestRelay_ForwardsTransportErrors(t *testing.T) {
	h := startRelay(t, chat.Snapshot{})
	conn := h.dial(t, "random")

	h.transport.push(chat.Snapshot{Err: chat.TransportError("load room", errors.New("disk gone"))})

	f := readUntil(t, conn, func(f Frame) bool { return f.Error != "" })
	assert.Contains(t, f.Error, "disk gone")
	assert.Empty(t, f.Messages)
}

func TestRelay_MetricsCountClients(t *testing.T) {
	h := startRelay(t, chat.Snapshot{})
	conn := h.dial(t, "random")
	readUntil(t, conn, func(Frame) bool { return true })

	assert.Eventually(t, func() bool { return h.hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Get(h.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "huddle_relay_clients 1")
}

func TestHub_RunFailsWhenSubscribeFails(t *testing.T) {
	hub := NewHub("random", failingTransport{}, nil, zerolog.Nop())

	err := hub.Run(context.Background())
	assert.ErrorIs(t, err, chat.ErrTransport)
}

func TestHub_RejectsClientsAfterShutdown(t *testing.T) {
	hub := NewHub("random", newPushTransport(chat.Snapshot{}), nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, hub.Run(ctx))

	assert.False(t, hub.register(&client{send: make(chan []byte, 1)}))
}

func TestHub_TransportSharesSubscription(t *testing.T) {
	h := startRelay(t, chat.Snapshot{Records: []chat.RawMessage{rec("a", "u1", 0), rec("b", "u2", time.Minute)}})

	views := make(chan thread.View, 16)
	room := thread.NewRoom(h.hub.Transport(), thread.StaticViewer("u1"), thread.PresenterFunc(func(v thread.View) {
		views <- v
	}), thread.RoomOptions{Order: chat.OrderDescending, Logger: zerolog.Nop()})
	require.NoError(t, room.Activate(context.Background()))
	t.Cleanup(func() { _ = room.Deactivate() })

	waitIDs := func(want ...string) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			select {
			case v := <-views:
				got := make([]string, 0, len(v.Messages))
				for _, m := range v.Messages {
					got = append(got, m.ID)
				}
				if len(got) == len(want) && strings.Join(got, ",") == strings.Join(want, ",") {
					return
				}
			case <-deadline:
				t.Fatalf("room never showed %v", want)
			}
		}
	}

	// Late subscribers get the latest snapshot, sorted for their order.
	waitIDs("b", "a")

	h.transport.push(chat.Snapshot{Records: []chat.RawMessage{rec("a", "u1", 0), rec("b", "u2", time.Minute), rec("c", "u1", 2*time.Minute)}})
	waitIDs("c", "b", "a")

	conn := h.dial(t, "random")
	readUntil(t, conn, func(f Frame) bool { return len(f.Messages) == 3 })

	h.transport.mu.Lock()
	defer h.transport.mu.Unlock()
	assert.Equal(t, 1, h.transport.subscribes)
}

func TestHub_TransportUnsubscribe(t *testing.T) {
	h := startRelay(t, chat.Snapshot{Records: []chat.RawMessage{rec("a", "u1", 0)}})

	var mu sync.Mutex
	calls := 0
	unsub, err := h.hub.Transport().Subscribe(context.Background(), chat.OrderAscending, func(chat.Snapshot) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)

	unsub()
	unsub()
	h.transport.push(chat.Snapshot{Records: []chat.RawMessage{rec("a", "u1", 0), rec("b", "u2", time.Minute)}})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls, "only the replay arrives before unsubscribe")
}
