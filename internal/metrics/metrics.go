// Package metrics exposes prometheus collectors for the conversation view and
// the relay. A *Metrics satisfies thread.Diagnostics, thread.Observer and
// relay.ClientObserver.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/core/thread"
)

type Metrics struct {
	snapshots      prometheus.Counter
	dropped        *prometheus.CounterVec
	messagesInView prometheus.Gauge
	subscriptions  prometheus.Gauge
	relayClients   prometheus.Gauge
}

// New registers the huddle collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		snapshots: factory.NewCounter(prometheus.CounterOpts{
			Name: "huddle_snapshots_total",
			Help: "Snapshots reconciled into the conversation view",
		}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_records_dropped_total",
			Help: "Records dropped during reconciliation",
		}, []string{"reason"}),
		messagesInView: factory.NewGauge(prometheus.GaugeOpts{
			Name: "huddle_messages_in_view",
			Help: "Messages in the most recent conversation view",
		}),
		subscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "huddle_subscriptions_active",
			Help: "Open store subscriptions",
		}),
		relayClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "huddle_relay_clients",
			Help: "Websocket clients connected to the relay",
		}),
	}
}

var (
	_ thread.Diagnostics = (*Metrics)(nil)
	_ thread.Observer    = (*Metrics)(nil)
)

func (m *Metrics) RecordDropped(_ chat.RawMessage, reason error) {
	m.dropped.WithLabelValues(thread.DropReason(reason)).Inc()
}

func (m *Metrics) SubscriptionOpened() { m.subscriptions.Inc() }
func (m *Metrics) SubscriptionClosed() { m.subscriptions.Dec() }

func (m *Metrics) SnapshotApplied(messages int) {
	m.snapshots.Inc()
	m.messagesInView.Set(float64(messages))
}

func (m *Metrics) ClientConnected()    { m.relayClients.Inc() }
func (m *Metrics) ClientDisconnected() { m.relayClients.Dec() }
