package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redemptions_total",
			Help: "Redemption attempts by outcome and reject reason.",
		},
		[]string{"outcome", "reason"},
	)

	codesRetiredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codes_retired_total",
			Help: "Short-term codes retired, by trigger (redemption/sweep).",
		},
		[]string{"trigger"},
	)

	codesIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "codes_issued_total",
			Help: "Access codes issued by operators.",
		},
	)

	auditLogFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_log_failures_total",
			Help: "Redemption audit writes that failed and were dropped.",
		},
	)

	sweepLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "code_sweep_latency_ms",
			Help:    "Lifecycle sweep pass latency distribution in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)
)

func init() {
	register(redemptionsTotal, codesRetiredTotal, codesIssuedTotal, auditLogFailures, sweepLatencyMs)
}

func IncRedemption(outcome, reason string) {
	if reason == "" {
		reason = "none"
	}
	redemptionsTotal.WithLabelValues(outcome, reason).Inc()
}

func IncCodesRetired(trigger string, n int) {
	codesRetiredTotal.WithLabelValues(trigger).Add(float64(n))
}

func IncCodeIssued() { codesIssuedTotal.Inc() }

func IncAuditLogFailure() { auditLogFailures.Inc() }

func ObserveSweepLatency(ms float64) { sweepLatencyMs.Observe(ms) }
