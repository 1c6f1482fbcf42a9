package refunds

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	refundProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refund_processed_total",
			Help: "Total number of refund attempts by outcome",
		},
		[]string{"gateway", "status"},
	)

	refundRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refund_rejected_total",
			Help: "Refund requests rejected before any gateway call",
		},
		[]string{"reason"},
	)

	refundDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "refund_duration_seconds",
			Help:    "End-to-end refund processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"gateway"},
	)
)

func init() {
	prometheus.MustRegister(refundProcessedTotal)
	prometheus.MustRegister(refundRejectedTotal)
	prometheus.MustRegister(refundDuration)
}

func recordProcessed(gatewayName, status string, seconds float64) {
	refundProcessedTotal.WithLabelValues(gatewayName, status).Inc()
	refundDuration.WithLabelValues(gatewayName).Observe(seconds)
}

func recordRejected(reason string) {
	refundRejectedTotal.WithLabelValues(reason).Inc()
}
