package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the server collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	connections   prometheus.Gauge
	viewers       prometheus.Gauge
	events        *prometheus.CounterVec
	unicast       *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	slowConsumers prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "watchparty_connections",
			Help: "Open websocket connections",
		}),
		viewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "watchparty_viewers",
			Help: "Current viewer count",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watchparty_broadcast_events_total",
			Help: "Events broadcast to every connected client",
		}, []string{"type"}),
		unicast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watchparty_unicast_events_total",
			Help: "Events sent to a single client",
		}, []string{"type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watchparty_dropped_commands_total",
			Help: "Client commands dropped without effect",
		}, []string{"reason"}),
		slowConsumers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchparty_slow_consumer_disconnects_total",
			Help: "Connections closed because their outbound queue was full",
		}),
	}

	reg.MustRegister(m.connections, m.viewers, m.events, m.unicast, m.dropped, m.slowConsumers)

	return m
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) SetViewers(count int) {
	if m == nil {
		return
	}
	m.viewers.Set(float64(count))
}

func (m *Metrics) EventBroadcast(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}

func (m *Metrics) EventSent(eventType string) {
	if m == nil {
		return
	}
	m.unicast.WithLabelValues(eventType).Inc()
}

func (m *Metrics) CommandDropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) SlowConsumer() {
	if m == nil {
		return
	}
	m.slowConsumers.Inc()
}
