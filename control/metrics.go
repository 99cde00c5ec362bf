// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors for frame, message and connection accounting.
// A Metrics value is shared by every connection of a process.

package control

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/momentics/hioload-wsframe/api"
)

// Metrics implements protocol.Observer on top of Prometheus collectors.
type Metrics struct {
	framesIn    *prometheus.CounterVec
	framesOut   *prometheus.CounterVec
	payloadIn   *prometheus.CounterVec
	payloadOut  *prometheus.CounterVec
	messagesIn  *prometheus.CounterVec
	errors      *prometheus.CounterVec
	connsOpened prometheus.Counter
	connsClosed prometheus.Counter
	connsActive prometheus.Gauge
}

// NewMetrics builds the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "wsframe"
	}
	m := &Metrics{
		framesIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "frames", Name: "received_total",
			Help: "Frames decoded, by frame type.",
		}, []string{"type"}),
		framesOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "frames", Name: "sent_total",
			Help: "Frames encoded and handed to the transport, by frame type.",
		}, []string{"type"}),
		payloadIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "frames", Name: "received_payload_bytes_total",
			Help: "Inbound payload bytes after unmasking, by frame type.",
		}, []string{"type"}),
		payloadOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "frames", Name: "sent_payload_bytes_total",
			Help: "Outbound payload bytes before masking, by frame type.",
		}, []string{"type"}),
		messagesIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "messages", Name: "received_total",
			Help: "Complete messages delivered to handlers, by message type.",
		}, []string{"type"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "protocol", Name: "errors_total",
			Help: "Decode and reassembly errors, by kind.",
		}, []string{"kind"}),
		connsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "connections", Name: "opened_total",
			Help: "Connections that completed the opening handshake.",
		}),
		connsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "connections", Name: "closed_total",
			Help: "Connections that reached the closed phase.",
		}),
		connsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "connections", Name: "active",
			Help: "Connections currently open.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.framesIn, m.framesOut, m.payloadIn, m.payloadOut,
			m.messagesIn, m.errors, m.connsOpened, m.connsClosed, m.connsActive)
	}
	return m
}

func (m *Metrics) FrameReceived(ft api.FrameType, payloadLen int) {
	m.framesIn.WithLabelValues(ft.String()).Inc()
	m.payloadIn.WithLabelValues(ft.String()).Add(float64(payloadLen))
}

func (m *Metrics) FrameSent(ft api.FrameType, payloadLen int) {
	m.framesOut.WithLabelValues(ft.String()).Inc()
	m.payloadOut.WithLabelValues(ft.String()).Add(float64(payloadLen))
}

func (m *Metrics) MessageReceived(ft api.FrameType, _ int) {
	m.messagesIn.WithLabelValues(ft.String()).Inc()
}

func (m *Metrics) Error(err error) {
	m.errors.WithLabelValues(api.CodeOf(err).String()).Inc()
}

// ConnectionOpened records a completed handshake.
func (m *Metrics) ConnectionOpened() {
	m.connsOpened.Inc()
	m.connsActive.Inc()
}

// ConnectionClosed records a connection leaving service.
func (m *Metrics) ConnectionClosed() {
	m.connsClosed.Inc()
	m.connsActive.Dec()
}
