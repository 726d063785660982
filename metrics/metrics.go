// Package metrics exposes the server's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the hub records into. Register against the
// default registerer in production; tests can pass a fresh registry.
type Metrics struct {
	Connections      prometheus.Gauge
	OnlineIdentities prometheus.Gauge
	MessagesIngested prometheus.Counter
	MessagesRejected *prometheus.CounterVec
	Broadcasts       prometheus.Counter
	HistoryPages     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chat_connections",
			Help: "Live websocket connections.",
		}),
		OnlineIdentities: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chat_online_identities",
			Help: "Distinct identities with at least one live connection.",
		}),
		MessagesIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_messages_ingested_total",
			Help: "Chat messages accepted and persisted.",
		}),
		MessagesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_rejected_total",
			Help: "Chat submissions dropped before persistence.",
		}, []string{"reason"}),
		Broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_broadcasts_total",
			Help: "Events fanned out to room members.",
		}),
		HistoryPages: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_history_pages_total",
			Help: "History pages served.",
		}),
	}
}
