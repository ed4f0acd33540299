package settlement

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics wraps collectors tracking withdrawal settlement.
type Metrics struct {
	settledTotal  *prometheus.CounterVec
	settledAmount *prometheus.CounterVec
	failures      *prometheus.CounterVec
	sweepDuration *prometheus.HistogramVec
}

var (
	metricsOnce     sync.Once
	metricsRegistry *Metrics
)

// NewMetrics returns the lazily registered process-wide collectors.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsRegistry = &Metrics{
			settledTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gigmarket",
				Subsystem: "settlement",
				Name:      "withdrawals_settled_total",
				Help:      "Withdrawals moved to completed by a sweep, segmented by trigger.",
			}, []string{"trigger"}),
			settledAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gigmarket",
				Subsystem: "settlement",
				Name:      "withdrawals_settled_minor_units_total",
				Help:      "Sum of withdrawal amounts debited by sweeps.",
			}, []string{"trigger"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gigmarket",
				Subsystem: "settlement",
				Name:      "failures_total",
				Help:      "Per-withdrawal or sweep-level settlement failures.",
			}, []string{"trigger"}),
			sweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "gigmarket",
				Subsystem: "settlement",
				Name:      "sweep_duration_seconds",
				Help:      "Wall time of a full sweep.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"trigger"}),
		}
		prometheus.MustRegister(
			metricsRegistry.settledTotal,
			metricsRegistry.settledAmount,
			metricsRegistry.failures,
			metricsRegistry.sweepDuration,
		)
	})
	return metricsRegistry
}

func (m *Metrics) settled(trigger string, amount int64) {
	m.settledTotal.WithLabelValues(trigger).Inc()
	m.settledAmount.WithLabelValues(trigger).Add(float64(amount))
}

func (m *Metrics) failed(trigger string) {
	m.failures.WithLabelValues(trigger).Inc()
}

func (m *Metrics) observeSweep(trigger string, d time.Duration) {
	m.sweepDuration.WithLabelValues(trigger).Observe(d.Seconds())
}
