package service

import (
	"sync"

	"gig-market/internal/gigmarket/data"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics wraps collectors for order and wallet activity.
type Metrics struct {
	orderTransitions *prometheus.CounterVec
	escrowReleased   prometheus.Counter
	platformRevenue  prometheus.Counter
	withdrawals      *prometheus.CounterVec
}

var (
	metricsOnce     sync.Once
	metricsRegistry *Metrics
)

// NewMetrics returns the lazily registered process-wide collectors.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsRegistry = &Metrics{
			orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gigmarket",
				Subsystem: "orders",
				Name:      "transitions_total",
				Help:      "Order status transitions segmented by source and target status.",
			}, []string{"from", "to"}),
			escrowReleased: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "gigmarket",
				Subsystem: "escrow",
				Name:      "released_minor_units_total",
				Help:      "Sum of freelancer earnings credited to wallets on approval.",
			}),
			platformRevenue: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "gigmarket",
				Subsystem: "escrow",
				Name:      "platform_fee_minor_units_total",
				Help:      "Sum of platform fees retained on approval.",
			}),
			withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gigmarket",
				Subsystem: "withdrawals",
				Name:      "transitions_total",
				Help:      "Withdrawal status changes segmented by resulting status.",
			}, []string{"status"}),
		}
		prometheus.MustRegister(
			metricsRegistry.orderTransitions,
			metricsRegistry.escrowReleased,
			metricsRegistry.platformRevenue,
			metricsRegistry.withdrawals,
		)
	})
	return metricsRegistry
}

func (m *Metrics) transition(from, to data.OrderStatus) {
	if m == nil || from == to {
		return
	}
	m.orderTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) release(earnings, fee int64) {
	if m == nil {
		return
	}
	m.escrowReleased.Add(float64(earnings))
	m.platformRevenue.Add(float64(fee))
}

func (m *Metrics) withdrawal(status data.WithdrawalStatus) {
	if m == nil {
		return
	}
	m.withdrawals.WithLabelValues(string(status)).Inc()
}
