// Package redisstore keeps a room in a redis hash and announces changes on a
// pub/sub channel.
//
// Layout for room R with prefix P:
//
//	P:R:messages  hash, record key -> raw JSON record
//	P:R:changes   channel, receives the number of records written
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hay-kot/huddle/internal/core/chat"
)

var errChannelClosed = errors.New("change channel closed")

// Options configures the redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Dial connects to redis and verifies the connection with PING.
func Dial(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, chat.TransportError("redis ping", err)
	}

	return client, nil
}

// Store implements chat.Transport and chat.Importer for a single room.
type Store struct {
	client *redis.Client
	prefix string
	room   string
	log    zerolog.Logger
}

// New creates a store for room using keys under prefix.
func New(client *redis.Client, prefix, room string) *Store {
	return &Store{client: client, prefix: prefix, room: room, log: zerolog.Nop()}
}

// WithLogger sets the logger used by subscriptions.
func (s *Store) WithLogger(l zerolog.Logger) *Store {
	s.log = l
	return s
}

// HashKey is the hash holding the room's records.
func (s *Store) HashKey() string { return s.prefix + ":" + s.room + ":messages" }

// ChannelKey is the pub/sub channel announcing changes.
func (s *Store) ChannelKey() string { return s.prefix + ":" + s.room + ":changes" }

// Load returns every record of the room ordered by hash key.
func (s *Store) Load(ctx context.Context) ([]chat.RawMessage, error) {
	fields, err := s.client.HGetAll(ctx, s.HashKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", s.HashKey(), err)
	}
	return decodeHash(fields), nil
}

// decodeHash turns hash fields into records. Keys are sorted first so that
// records with equal timestamps keep a stable order across loads.
func decodeHash(fields map[string]string) []chat.RawMessage {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	records := make([]chat.RawMessage, 0, len(keys))
	for _, k := range keys {
		records = append(records, chat.DecodeRawMessage([]byte(fields[k])))
	}
	return records
}

// Import writes records into the hash in one transaction and publishes a
// single change notification.
func (s *Store) Import(ctx context.Context, records []json.RawMessage) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, rec := range records {
			pipe.HSet(ctx, s.HashKey(), chat.RecordKey(rec), string(rec))
		}
		pipe.Publish(ctx, s.ChannelKey(), strconv.Itoa(len(records)))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("import into %s: %w", s.HashKey(), err)
	}

	return len(records), nil
}

// Subscribe listens on the change channel, delivers the current hash, then
// reloads after every notification. Notifications that pile up while a
// reload runs are coalesced into one.
func (s *Store) Subscribe(ctx context.Context, order chat.Order, fn chat.SnapshotFunc) (chat.Unsubscribe, error) {
	ps := s.client.Subscribe(ctx, s.ChannelKey())
	// Wait for the subscription confirmation so no change between the
	// initial load and the subscription is lost.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, chat.TransportError("redis subscribe", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go s.listen(ctx, ps, order, fn, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = ps.Close()
			<-done
		})
	}, nil
}

func (s *Store) listen(ctx context.Context, ps *redis.PubSub, order chat.Order, fn chat.SnapshotFunc, done chan<- struct{}) {
	defer close(done)

	ch := ps.Channel()
	s.deliver(ctx, order, fn)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				if ctx.Err() == nil {
					fn(chat.Snapshot{Err: chat.TransportError("redis subscribe", errChannelClosed)})
				}
				return
			}
			drain(ch)
			s.deliver(ctx, order, fn)
		}
	}
}

// drain discards notifications already buffered on ch.
func drain(ch <-chan *redis.Message) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (s *Store) deliver(ctx context.Context, order chat.Order, fn chat.SnapshotFunc) {
	records, err := s.Load(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Str("room", s.room).Msg("load room failed")
		fn(chat.Snapshot{Err: chat.TransportError("redis load", err)})
		return
	}

	order.Sort(records)
	fn(chat.Snapshot{Records: records})
}
