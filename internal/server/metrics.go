package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/muurk/wschat/internal/protocol"
	"github.com/muurk/wschat/internal/registry"
)

const metricsNamespace = "wschat"

// Metrics holds the Prometheus collectors for one server.
// It implements registry.Observer.
type Metrics struct {
	clientsConnected   prometheus.Gauge
	clientsTotal       prometheus.Counter
	handshakeFailures  *prometheus.CounterVec
	framesReceived     *prometheus.CounterVec
	protocolViolations *prometheus.CounterVec
	broadcastsTotal    prometheus.Counter
	deliveries         *prometheus.CounterVec
	encodeFailures     prometheus.Counter
}

// NewMetrics creates the server collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		clientsConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "clients_connected",
			Help:      "Number of clients currently registered",
		}),
		clientsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "clients_total",
			Help:      "Total number of clients that completed the handshake",
		}),
		handshakeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "handshake_failures_total",
			Help:      "Total number of rejected upgrade requests",
		}, []string{"reason"}),
		framesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_received_total",
			Help:      "Total number of frames read from clients",
		}, []string{"opcode"}),
		protocolViolations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "protocol_violations_total",
			Help:      "Total number of discarded frames",
		}, []string{"reason"}),
		broadcastsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "broadcasts_total",
			Help:      "Total number of messages broadcast",
		}),
		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "deliveries_total",
			Help:      "Total number of per-client sends",
		}, []string{"result"}),
		encodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "encode_failures_total",
			Help:      "Total number of messages dropped because they did not fit in a frame",
		}),
	}
}

// HandshakeFailed counts a rejected upgrade request
func (m *Metrics) HandshakeFailed(reason protocol.HandshakeReason) {
	m.handshakeFailures.WithLabelValues(reason.String()).Inc()
}

// FrameReceived counts a decoded frame
func (m *Metrics) FrameReceived(opcode protocol.Opcode) {
	m.framesReceived.WithLabelValues(opcode.String()).Inc()
}

// Violation counts a discarded frame
func (m *Metrics) Violation(reason protocol.ViolationReason) {
	m.protocolViolations.WithLabelValues(reason.String()).Inc()
}

// ClientAdded implements registry.Observer
func (m *Metrics) ClientAdded(*registry.Client) {
	m.clientsConnected.Inc()
	m.clientsTotal.Inc()
}

// ClientRemoved implements registry.Observer
func (m *Metrics) ClientRemoved(*registry.Client) {
	m.clientsConnected.Dec()
}

// Broadcasted implements registry.Observer
func (m *Metrics) Broadcasted(r registry.Report) {
	m.broadcastsTotal.Inc()
	m.deliveries.WithLabelValues("ok").Add(float64(r.Delivered))
	m.deliveries.WithLabelValues("failed").Add(float64(len(r.Failed)))
}

// EncodeFailed implements registry.Observer
func (m *Metrics) EncodeFailed(string, error) {
	m.encodeFailures.Inc()
}
