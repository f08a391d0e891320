package commands

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/huddle/internal/core/config"
	"github.com/hay-kot/huddle/internal/core/thread"
	"github.com/hay-kot/huddle/internal/metrics"
	"github.com/hay-kot/huddle/internal/relay"
)

type RelayCmd struct {
	flags     *Flags
	addr      string
	noMetrics bool
}

// NewRelayCmd creates the websocket fan-out server.
func NewRelayCmd(flags *Flags) *RelayCmd {
	return &RelayCmd{flags: flags}
}

// Register adds `huddle relay` to the application.
func (cmd *RelayCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "relay",
		Usage:     "Serve room snapshots to websocket clients",
		UsageText: "huddle relay [--addr :7420]",
		Description: `Subscribes to the configured store once and pushes every snapshot to
connected clients at /ws?room=<name>. Viewers reach the relay with
transport.kind: websocket. Prometheus metrics are served at /metrics.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (defaults to relay.addr from config)",
				Destination: &cmd.addr,
			},
			&cli.BoolFlag{
				Name:        "no-metrics",
				Usage:       "disable the /metrics endpoint",
				Destination: &cmd.noMetrics,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *RelayCmd) run(ctx context.Context, _ *cli.Command) error {
	cfg := cmd.flags.Config
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}
	if cfg.Transport.Kind == config.TransportWebSocket {
		return fmt.Errorf("the relay cannot follow another relay; choose a store transport")
	}

	addr := cmd.addr
	if addr == "" {
		addr = cfg.Relay.Addr
	}

	logger := log.With().Str("component", "relay").Logger()

	b, err := openBackend(ctx, cfg, log.Logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Transport.Kind, err)
	}
	defer func() { _ = b.Close() }()

	if cmd.noMetrics {
		hub := relay.NewHub(cfg.Room.Name, b.Transport, nil, logger)
		return relay.Serve(ctx, addr, hub, relay.NewRouter(hub, nil, logger), logger)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	hub := relay.NewHub(cfg.Room.Name, b.Transport, m, logger)

	// A headless room keeps the view metrics current. It reads from the hub
	// so the store sees a single subscription.
	room, err := newRoom(cfg, roomParts{
		Transport:   hub.Transport(),
		Viewer:      cfg.Viewer,
		Presenter:   thread.PresenterFunc(func(thread.View) {}),
		Diagnostics: thread.MultiDiagnostics{thread.LogDiagnostics{Logger: logger}, m},
		Observer:    m,
	}, logger)
	if err != nil {
		return err
	}
	if err := room.Activate(ctx); err != nil {
		return err
	}
	defer func() { _ = room.Deactivate() }()

	return relay.Serve(ctx, addr, hub, relay.NewRouter(hub, reg, logger), logger)
}
