package router

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Call outcomes counted by Metrics.
const (
	outcomeResult          = "result"
	outcomeNoSuchProcedure = "no_such_procedure"
	outcomeCallFailed      = "call_failed"
)

// Metrics holds the engine's prometheus collectors.  A nil *Metrics counts
// nothing.
type Metrics struct {
	calls     *prometheus.CounterVec
	events    prometheus.Counter
	sessions  prometheus.Gauge
	malformed prometheus.Counter
}

// NewMetrics creates the engine collectors and registers them with reg, if
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wamp",
			Subsystem: "dealer",
			Name:      "calls_total",
			Help:      "Calls dispatched, by outcome",
		}, []string{"outcome"}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wamp",
			Subsystem: "broker",
			Name:      "events_delivered_total",
			Help:      "Events delivered to subscribers",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wamp",
			Subsystem: "engine",
			Name:      "sessions_active",
			Help:      "Sessions currently attached",
		}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wamp",
			Subsystem: "engine",
			Name:      "malformed_messages_total",
			Help:      "Messages that could not be decoded",
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.calls, m.events, m.sessions, m.malformed} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) callOutcome(outcome string) {
	if m != nil {
		m.calls.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) eventsDelivered(n int) {
	if m != nil && n != 0 {
		m.events.Add(float64(n))
	}
}

func (m *Metrics) sessionAdded() {
	if m != nil {
		m.sessions.Inc()
	}
}

func (m *Metrics) sessionRemoved() {
	if m != nil {
		m.sessions.Dec()
	}
}

func (m *Metrics) malformedMessage() {
	if m != nil {
		m.malformed.Inc()
	}
}
