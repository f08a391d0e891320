package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/core/config"
	"github.com/hay-kot/huddle/internal/store/jsonfile"
	"github.com/hay-kot/huddle/internal/store/natskv"
	"github.com/hay-kot/huddle/internal/store/redisstore"
	"github.com/hay-kot/huddle/internal/store/wsclient"
)

// backend is the configured room store.
type backend struct {
	Transport chat.Transport
	// Importer is nil when the store is read-only (websocket).
	Importer chat.Importer
	close    func() error
}

// Close releases connections held by the store.
func (b *backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// openBackend connects the store selected by cfg.Transport.Kind.
func openBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend, error) {
	room := cfg.Room.Name
	log = log.With().Str("component", "store").Str("transport", cfg.Transport.Kind).Str("room", room).Logger()

	switch cfg.Transport.Kind {
	case config.TransportJSONFile:
		store := jsonfile.New(cfg.RoomsDir(), room).
			WithPollInterval(cfg.Transport.JSONFile.PollInterval).
			WithLogger(log)
		return &backend{Transport: store, Importer: store}, nil

	case config.TransportRedis:
		rc := cfg.Transport.Redis
		client, err := redisstore.Dial(ctx, redisstore.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
		if err != nil {
			return nil, err
		}
		store := redisstore.New(client, rc.Prefix, room).WithLogger(log)
		return &backend{Transport: store, Importer: store, close: client.Close}, nil

	case config.TransportNATS:
		nc := cfg.Transport.NATS
		conn, kv, err := natskv.Connect(natskv.Options{URL: nc.URL, Bucket: nc.Bucket})
		if err != nil {
			return nil, err
		}
		store := natskv.New(kv, room).WithLogger(log)
		return &backend{Transport: store, Importer: store, close: func() error {
			return conn.Drain()
		}}, nil

	case config.TransportWebSocket:
		client := wsclient.New(cfg.Transport.WebSocket.URL, room).WithLogger(log)
		return &backend{Transport: client}, nil
	}

	return nil, fmt.Errorf("unknown transport %q", cfg.Transport.Kind)
}
