// Package monitoring exposes Prometheus metrics for the protocol layer.
//
// A nil *Metrics is valid everywhere: all record methods are no-ops on nil,
// mirroring the optional-logger rule, so instrumentation never becomes a
// protocol dependency.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Handshake outcome labels.
const (
	OutcomeAcknowledged = "acknowledged"
	OutcomeTimedOut     = "timed_out"
	OutcomeRejected     = "rejected"
)

// Metrics holds all Prometheus metrics for a crosspane host.
type Metrics struct {
	HandshakesTotal   *prometheus.CounterVec
	MessagesDropped   *prometheus.CounterVec
	EmitsTotal        prometheus.Counter
	PendingGets       prometheus.Gauge
	BridgeConnections prometheus.Gauge
}

// New creates a metrics collector registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HandshakesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crosspane_handshakes_total",
				Help: "Handshake attempts by terminal outcome",
			},
			[]string{"outcome"},
		),
		MessagesDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crosspane_messages_dropped_total",
				Help: "Inbound messages rejected by the sanitizer, by reason",
			},
			[]string{"reason"},
		),
		EmitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "crosspane_emits_total",
				Help: "Events emitted by guests",
			},
		),
		PendingGets: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "crosspane_pending_gets",
				Help: "Property reads awaiting a reply",
			},
		),
		BridgeConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "crosspane_bridge_connections",
				Help: "Active WebSocket bridge connections",
			},
		),
	}
}

// NewDefault creates a metrics collector on the default registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

// RecordHandshake counts a terminal handshake outcome.
func (m *Metrics) RecordHandshake(outcome string) {
	if m == nil {
		return
	}
	m.HandshakesTotal.WithLabelValues(outcome).Inc()
}

// RecordDrop counts a sanitizer rejection.
func (m *Metrics) RecordDrop(reason string) {
	if m == nil {
		return
	}
	m.MessagesDropped.WithLabelValues(reason).Inc()
}

// RecordEmit counts an emitted event.
func (m *Metrics) RecordEmit() {
	if m == nil {
		return
	}
	m.EmitsTotal.Inc()
}

// GetStarted tracks a new pending property read.
func (m *Metrics) GetStarted() {
	if m == nil {
		return
	}
	m.PendingGets.Inc()
}

// GetSettled tracks a property read leaving the pending registry.
func (m *Metrics) GetSettled() {
	if m == nil {
		return
	}
	m.PendingGets.Dec()
}

// BridgeOpened tracks a bridge connection being established.
func (m *Metrics) BridgeOpened() {
	if m == nil {
		return
	}
	m.BridgeConnections.Inc()
}

// BridgeClosed tracks a bridge connection going away.
func (m *Metrics) BridgeClosed() {
	if m == nil {
		return
	}
	m.BridgeConnections.Dec()
}
