package transport

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// TransportMetrics counts the bytes moved by one type of transport.
type TransportMetrics struct {
	transportType string
	outBytes      *prometheus.CounterVec
	inBytes       *prometheus.CounterVec
}

var (
	registerOnce sync.Once

	incomingCounterVec = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wamp",
			Subsystem: "transport",
			Name:      "bytes_incoming",
			Help:      "Total incoming bytes",
		},
		[]string{"transport_type"},
	)
	outgoingCounterVec = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wamp",
			Subsystem: "transport",
			Name:      "bytes_outgoing",
			Help:      "Total outgoing bytes",
		},
		[]string{"transport_type"},
	)
)

// RegisterMetrics registers the transport collectors with the default
// prometheus registry.  It is safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(incomingCounterVec, outgoingCounterVec)
	})
}

func NewTransportMetrics(transportType string) *TransportMetrics {
	RegisterMetrics()
	return &TransportMetrics{
		transportType: transportType,
		inBytes:       incomingCounterVec,
		outBytes:      outgoingCounterVec,
	}
}

func (t TransportMetrics) CountIncoming(bytesNum int) {
	t.inBytes.WithLabelValues(t.transportType).Add(float64(bytesNum))
}

func (t TransportMetrics) CountOutgoing(bytesNum int) {
	t.outBytes.WithLabelValues(t.transportType).Add(float64(bytesNum))
}
