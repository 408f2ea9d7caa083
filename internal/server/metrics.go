// Package server exposes relay counters to Prometheus.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the relay's collectors on a private registry so several
// servers can coexist in one process. A nil *Metrics records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	activeClients prometheus.Gauge
	disconnects   prometheus.Counter
	rejected      prometheus.Counter
	relayed       *prometheus.CounterVec
	announcements prometheus.Counter
}

// NewMetrics creates and registers the relay collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		activeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "roomchat",
			Name:      "active_clients",
			Help:      "Number of occupied registry slots.",
		}),
		disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roomchat",
			Name:      "disconnects_total",
			Help:      "Slots freed since start.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roomchat",
			Name:      "rejected_connections_total",
			Help:      "Connections refused because the server was full.",
		}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomchat",
			Name:      "chat_messages_total",
			Help:      "Chat lines relayed, by room.",
		}, []string{"room"}),
		announcements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roomchat",
			Name:      "announcements_total",
			Help:      "Operator announcements broadcast.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.activeClients,
		m.disconnects,
		m.rejected,
		m.relayed,
		m.announcements,
	)
	return m
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) clientRegistered() {
	if m != nil {
		m.activeClients.Inc()
	}
}

func (m *Metrics) clientUnregistered() {
	if m != nil {
		m.activeClients.Dec()
		m.disconnects.Inc()
	}
}

func (m *Metrics) connectionRejected() {
	if m != nil {
		m.rejected.Inc()
	}
}

func (m *Metrics) chatRelayed(room Room) {
	if m != nil {
		m.relayed.WithLabelValues(room.String()).Inc()
	}
}

func (m *Metrics) announced() {
	if m != nil {
		m.announcements.Inc()
	}
}
