package statsd

import "github.com/prometheus/client_golang/prometheus"

// SelfStats are the engine's own operational counters, never flushed to the
// Queue — only exposed via Prometheus. This is the Go-native analogue of
// telegraf's selfstat-backed internalStats.
type SelfStats struct {
	PacketsReceived prometheus.Counter
	PacketsDropped  prometheus.Counter
	BadLines        prometheus.Counter
}

// NewSelfStats registers the engine's self-stat counters on reg.
func NewSelfStats(reg prometheus.Registerer) *SelfStats {
	s := &SelfStats{
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buckyd",
			Name:      "packets_received_total",
			Help:      "UDP datagrams received by the statsd listener.",
		}),
		PacketsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buckyd",
			Name:      "packets_dropped_total",
			Help:      "UDP datagrams dropped because the pending queue was full.",
		}),
		BadLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buckyd",
			Name:      "bad_lines_total",
			Help:      "Lines or samples that failed to parse.",
		}),
	}
	reg.MustRegister(s.PacketsReceived, s.PacketsDropped, s.BadLines)
	return s
}
