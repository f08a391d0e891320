// Package wsclient follows a room through a huddle relay. Every text frame
// from the relay is a full snapshot.
package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/relay"
)

const closeWait = time.Second

// Client implements chat.Transport against a relay's /ws endpoint.
type Client struct {
	url    string
	room   string
	dialer *websocket.Dialer
	log    zerolog.Logger
}

// New creates a client for room on the relay at rawURL (ws:// or wss://).
func New(rawURL, room string) *Client {
	return &Client{
		url:  rawURL,
		room: room,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		log: zerolog.Nop(),
	}
}

// WithLogger sets the logger used by subscriptions.
func (c *Client) WithLogger(l zerolog.Logger) *Client {
	c.log = l
	return c
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("parse relay url: %w", err)
	}
	q := u.Query()
	q.Set("room", c.room)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe dials the relay and delivers every frame as a snapshot. A read or
// decode failure is delivered as Snapshot{Err} and ends the subscription.
func (c *Client) Subscribe(ctx context.Context, order chat.Order, fn chat.SnapshotFunc) (chat.Unsubscribe, error) {
	endpoint, err := c.endpoint()
	if err != nil {
		return nil, chat.TransportError("websocket dial", err)
	}

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, chat.TransportError("websocket dial", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go c.read(ctx, conn, order, fn, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(closeWait))
			_ = conn.Close()
			<-done
		})
	}, nil
}

func (c *Client) read(ctx context.Context, conn *websocket.Conn, order chat.Order, fn chat.SnapshotFunc, done chan<- struct{}) {
	defer close(done)

	for {
		_, data, err := conn.ReadMessage()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.log.Warn().Err(err).Msg("relay read failed")
			fn(chat.Snapshot{Err: chat.TransportError("websocket read", err)})
			return
		}

		snap, err := decodeFrame(data)
		if err != nil {
			c.log.Warn().Err(err).Msg("relay sent an unreadable frame")
		}
		if snap.Err == nil {
			order.Sort(snap.Records)
		}
		fn(snap)
	}
}

// decodeFrame turns a relay frame into a snapshot. A frame that cannot be
// parsed, or one carrying a relay-side error, becomes Snapshot{Err}.
func decodeFrame(data []byte) (chat.Snapshot, error) {
	var f relay.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		err = fmt.Errorf("decode frame: %w", err)
		return chat.Snapshot{Err: chat.TransportError("websocket read", err)}, err
	}
	if f.Error != "" {
		return chat.Snapshot{Err: chat.TransportError("relay", errors.New(f.Error))}, nil
	}
	return chat.Snapshot{Records: chat.DecodeRawMessages(f.Messages)}, nil
}
