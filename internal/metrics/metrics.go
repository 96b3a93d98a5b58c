package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/armolymp/webSocket-python-react-native/internal/connection"
)

const namespace = "wsdemo"

// Metrics holds all Prometheus metrics and implements connection.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	HandlesOpened    prometheus.Counter
	HandlesClosed    *prometheus.CounterVec
	HandlesAbandoned prometheus.Counter
	HandleHeld       prometheus.Gauge

	MessagesReceived prometheus.Counter
	BytesReceived    prometheus.Counter

	Failures *prometheus.CounterVec
}

// New creates the metrics on a fresh registry, including Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,

		HandlesOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handles_opened_total",
			Help:      "Connections whose transport reported open",
		}),
		HandlesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handles_closed_total",
			Help:      "Connections whose transport reported closed, by initiator",
		}, []string{"initiator"}),
		HandlesAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handles_abandoned_total",
			Help:      "Held connections replaced by a new open without being closed",
		}),
		HandleHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "handle_held",
			Help:      "1 while a connection handle is held, 0 otherwise",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Messages received across all connections",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "received_bytes_total",
			Help:      "Payload bytes received across all connections",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Transport failures by kind",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.HandlesOpened,
		m.HandlesClosed,
		m.HandlesAbandoned,
		m.HandleHeld,
		m.MessagesReceived,
		m.BytesReceived,
		m.Failures,
	)

	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) HandleOpened() {
	m.HandlesOpened.Inc()
}

func (m *Metrics) HandleClosed(local bool) {
	initiator := "remote"
	if local {
		initiator = "local"
	}
	m.HandlesClosed.WithLabelValues(initiator).Inc()
}

func (m *Metrics) MessageReceived(bytes int) {
	m.MessagesReceived.Inc()
	m.BytesReceived.Add(float64(bytes))
}

func (m *Metrics) HandleFailed(kind connection.ErrorKind) {
	m.Failures.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) HandleAbandoned() {
	m.HandlesAbandoned.Inc()
}

func (m *Metrics) SetHolding(holding bool) {
	if holding {
		m.HandleHeld.Set(1)
	} else {
		m.HandleHeld.Set(0)
	}
}

var _ connection.Recorder = (*Metrics)(nil)
