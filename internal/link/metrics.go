// internal/link/metrics.go
package link

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the duplex loop. A nil *Metrics is valid and records nothing.
type Metrics struct {
	iterations prometheus.Counter
	failures   *prometheus.CounterVec
	latency    prometheus.Histogram
	bytesIn    prometheus.Counter
	bytesOut   prometheus.Counter
	running    prometheus.Gauge
}

// NewMetrics registers the link collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		iterations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lumix",
			Subsystem: "link",
			Name:      "iterations_total",
			Help:      "Frames received, enhanced and sent.",
		}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lumix",
			Subsystem: "link",
			Name:      "failures_total",
			Help:      "Loop failures by stage.",
		}, []string{"stage"}),
		latency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lumix",
			Subsystem: "link",
			Name:      "enhance_seconds",
			Help:      "Time spent enhancing one frame.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		bytesIn: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lumix",
			Subsystem: "link",
			Name:      "received_bytes_total",
			Help:      "Inbound payload bytes.",
		}),
		bytesOut: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lumix",
			Subsystem: "link",
			Name:      "sent_bytes_total",
			Help:      "Outbound payload bytes.",
		}),
		running: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "lumix",
			Subsystem: "link",
			Name:      "running",
			Help:      "1 while the duplex loop is running.",
		}),
	}
}

func (m *Metrics) received(n int) {
	if m == nil {
		return
	}
	m.bytesIn.Add(float64(n))
}

func (m *Metrics) sent(n int, seconds float64) {
	if m == nil {
		return
	}
	m.iterations.Inc()
	m.bytesOut.Add(float64(n))
	m.latency.Observe(seconds)
}

func (m *Metrics) failed(stage string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(stage).Inc()
}

func (m *Metrics) setRunning(on bool) {
	if m == nil {
		return
	}
	if on {
		m.running.Set(1)
	} else {
		m.running.Set(0)
	}
}
