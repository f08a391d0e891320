package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hay-kot/huddle/internal/core/chat"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames
	maxMessageSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ClientObserver is told about websocket clients coming and going.
type ClientObserver interface {
	ClientConnected()
	ClientDisconnected()
}

type nopClientObserver struct{}

func (nopClientObserver) ClientConnected()    {}
func (nopClientObserver) ClientDisconnected() {}

type client struct {
	id   string
	conn *websocket.Conn
	// send holds at most the newest frame; older unsent frames are replaced.
	send chan []byte
}

// Hub holds one subscription to the backing transport and fans every snapshot
// out to the connected websocket clients and to local subscribers of
// Transport.
type Hub struct {
	room      string
	transport chat.Transport
	observer  ClientObserver
	log       zerolog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	latest  []byte
	closed  bool

	// tapMu serializes local listener delivery so a late subscriber's replay
	// never overtakes a newer snapshot.
	tapMu   sync.Mutex
	taps    map[int]tap
	nextTap int
	last    *chat.Snapshot
}

type tap struct {
	order chat.Order
	fn    chat.SnapshotFunc
}

// NewHub creates a hub for room. It does not subscribe until Run.
func NewHub(room string, transport chat.Transport, observer ClientObserver, log zerolog.Logger) *Hub {
	if observer == nil {
		observer = nopClientObserver{}
	}
	return &Hub{
		room:      room,
		transport: transport,
		observer:  observer,
		log:       log,
		clients:   make(map[*client]struct{}),
		taps:      make(map[int]tap),
	}
}

// Transport returns a transport fed by the hub's own subscription. In-process
// consumers use it instead of opening a second subscription to the store.
func (h *Hub) Transport() chat.Transport { return hubTransport{h} }

type hubTransport struct{ h *Hub }

// Subscribe registers fn with the hub. A subscriber that arrives after the
// first snapshot receives the latest one immediately.
func (t hubTransport) Subscribe(_ context.Context, order chat.Order, fn chat.SnapshotFunc) (chat.Unsubscribe, error) {
	h := t.h
	h.tapMu.Lock()
	id := h.nextTap
	h.nextTap++
	h.taps[id] = tap{order: order, fn: fn}
	if h.last != nil {
		fn(ordered(*h.last, order))
	}
	h.tapMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.tapMu.Lock()
			delete(h.taps, id)
			h.tapMu.Unlock()
		})
	}, nil
}

// ordered returns snap with its own copy of the records sorted by order.
func ordered(snap chat.Snapshot, order chat.Order) chat.Snapshot {
	snap.Records = slices.Clone(snap.Records)
	order.Sort(snap.Records)
	return snap
}

func (h *Hub) fanout(snap chat.Snapshot) {
	h.tapMu.Lock()
	defer h.tapMu.Unlock()

	h.last = &snap
	for _, t := range h.taps {
		t.fn(ordered(snap, t.order))
	}
}

// Room returns the room the hub serves.
func (h *Hub) Room() string { return h.room }

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run subscribes to the transport and blocks until ctx is done. Connected
// clients are closed on the way out.
func (h *Hub) Run(ctx context.Context) error {
	unsub, err := h.transport.Subscribe(ctx, chat.OrderAscending, h.publish)
	if err != nil {
		return err
	}

	<-ctx.Done()
	unsub()

	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	return nil
}

func (h *Hub) publish(snap chat.Snapshot) {
	h.fanout(snap)

	frame, err := NewFrame(h.room, snap)
	if err != nil {
		h.log.Error().Err(err).Msg("encode frame")
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal frame")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = data
	for c := range h.clients {
		offer(c.send, data)
	}
	h.log.Debug().Int("records", len(frame.Messages)).Int("clients", len(h.clients)).Msg("broadcast")
}

// offer puts data on a one-slot channel, replacing a frame the writer has
// not picked up yet. Only the publisher (under h.mu) sends.
func offer(ch chan []byte, data []byte) {
	select {
	case ch <- data:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- data:
	default:
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.latest != nil {
		offer(c.send, h.latest)
	}
	h.observer.ClientConnected()
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.observer.ClientDisconnected()
}

// ServeWS upgrades the request and streams frames until the peer goes away.
func (h *Hub) ServeWS(ctx *gin.Context) {
	if room := ctx.Query("room"); room != "" && room != h.room {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "unknown room"})
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, 1)}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	log := h.log.With().Str("client", c.id).Str("remote_addr", ctx.Request.RemoteAddr).Logger()
	log.Info().Msg("client connected")

	go h.writePump(c, log)
	h.readPump(c, log)
}

// readPump discards client frames and keeps the read deadline alive. It
// returns when the connection fails.
func (h *Hub) readPump(c *client, log zerolog.Logger) {
	defer func() {
		h.unregister(c)
		log.Info().Msg("client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client, log zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					log.Debug().Err(err).Msg("websocket write failed")
				}
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
