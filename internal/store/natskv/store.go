// Package natskv stores rooms in a NATS JetStream key-value bucket. Every
// record is one key, <room>.<encoded id>, so a room is the key subtree
// <room>.> and watching it yields per-record puts and deletes.
package natskv

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	nats "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/hay-kot/huddle/internal/core/chat"
)

var errWatchClosed = errors.New("kv watcher closed")

// Options configures the NATS connection.
type Options struct {
	URL            string
	Bucket         string
	ConnectTimeout time.Duration
}

// Connect dials NATS and opens the bucket, creating it when missing. The
// caller owns the returned connection.
func Connect(opts Options) (*nats.Conn, nats.KeyValue, error) {
	if opts.URL == "" {
		opts.URL = nats.DefaultURL
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	conn, err := nats.Connect(opts.URL, nats.Name("huddle"), nats.Timeout(opts.ConnectTimeout))
	if err != nil {
		return nil, nil, chat.TransportError("connect to nats", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		_ = conn.Drain()
		return nil, nil, chat.TransportError("init jetstream", err)
	}

	kv, err := js.KeyValue(opts.Bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: opts.Bucket, History: 1})
		if err != nil {
			_ = conn.Drain()
			return nil, nil, chat.TransportError("ensure bucket", err)
		}
	}

	return conn, kv, nil
}

// Store implements chat.Transport and chat.Importer for a single room.
type Store struct {
	kv   nats.KeyValue
	room string
	log  zerolog.Logger
}

// New creates a store for room in kv.
func New(kv nats.KeyValue, room string) *Store {
	return &Store{kv: kv, room: room, log: zerolog.Nop()}
}

// WithLogger sets the logger used by subscriptions.
func (s *Store) WithLogger(l zerolog.Logger) *Store {
	s.log = l
	return s
}

// Key returns the bucket key for a record id. Ids are base64url encoded
// because they may contain characters keys do not allow.
func (s *Store) Key(id string) string {
	return s.room + "." + base64.RawURLEncoding.EncodeToString([]byte(id))
}

func (s *Store) filter() string {
	return s.room + ".>"
}

// Import puts every record under its key.
func (s *Store) Import(ctx context.Context, records []json.RawMessage) (int, error) {
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if _, err := s.kv.Put(s.Key(chat.RecordKey(rec)), rec); err != nil {
			return i, fmt.Errorf("put record: %w", err)
		}
	}
	return len(records), nil
}

// Load returns the current records of the room.
func (s *Store) Load(ctx context.Context) ([]chat.RawMessage, error) {
	w, err := s.kv.Watch(s.filter(), nats.IgnoreDeletes(), nats.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", s.filter(), err)
	}
	defer w.Stop() //nolint:errcheck

	var set recordSet
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case entry, ok := <-w.Updates():
			if !ok {
				return nil, errWatchClosed
			}
			if entry == nil {
				return set.records(), nil
			}
			set.apply(entry.Key(), entry.Value(), entry.Operation())
		}
	}
}

// Subscribe watches the room subtree. The first snapshot is delivered once
// the bucket has replayed its current values; after that every put, delete
// or purge produces a new snapshot.
func (s *Store) Subscribe(ctx context.Context, order chat.Order, fn chat.SnapshotFunc) (chat.Unsubscribe, error) {
	ctx, cancel := context.WithCancel(ctx)

	w, err := s.kv.Watch(s.filter(), nats.Context(ctx))
	if err != nil {
		cancel()
		return nil, chat.TransportError("kv watch", err)
	}

	done := make(chan struct{})
	go s.follow(ctx, w, order, fn, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = w.Stop()
			<-done
		})
	}, nil
}

func (s *Store) follow(ctx context.Context, w nats.KeyWatcher, order chat.Order, fn chat.SnapshotFunc, done chan<- struct{}) {
	defer close(done)

	var (
		set   recordSet
		ready bool
	)

	deliver := func() {
		records := set.records()
		order.Sort(records)
		s.log.Debug().Str("room", s.room).Int("records", set.len()).Msg("room snapshot")
		fn(chat.Snapshot{Records: records})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-w.Updates():
			if !ok {
				if ctx.Err() == nil {
					fn(chat.Snapshot{Err: chat.TransportError("kv watch", errWatchClosed)})
				}
				return
			}
			if entry == nil {
				// initial values replayed
				ready = true
				deliver()
				continue
			}
			if set.apply(entry.Key(), entry.Value(), entry.Operation()) && ready {
				deliver()
			}
		}
	}
}
