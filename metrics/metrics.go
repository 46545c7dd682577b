// Package metrics exposes the Prometheus instrumentation for the service:
//   - tradeflow_webhook_requests_total{code}      – webhook responses by HTTP code
//   - tradeflow_attempts_total{outcome}           – position attempts by terminal outcome
//   - tradeflow_attempt_duration_seconds          – end-to-end attempt latency
//   - tradeflow_gateway_calls_total{op,result}    – exchange gateway calls by operation
//   - tradeflow_unrecoverable_exposure_total      – attempts that ended with live unprotected exposure
//
// All collectors are registered in init() and served by the HTTP server at
// /metrics in the Prometheus text exposition format.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	webhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradeflow_webhook_requests_total",
			Help: "Webhook requests by HTTP status code",
		},
		[]string{"code"},
	)

	attempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradeflow_attempts_total",
			Help: "Position attempts by terminal outcome",
		},
		[]string{"outcome"},
	)

	attemptDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tradeflow_attempt_duration_seconds",
			Help:    "End-to-end duration of a position attempt",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	gatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradeflow_gateway_calls_total",
			Help: "Exchange gateway calls by operation and result",
		},
		[]string{"op", "result"},
	)

	unrecoverableExposure = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tradeflow_unrecoverable_exposure_total",
			Help: "Attempts that ended with a live position and no protective orders",
		},
	)
)

func init() {
	prometheus.MustRegister(
		webhookRequests,
		attempts,
		attemptDuration,
		gatewayCalls,
		unrecoverableExposure,
	)
}

// RecordWebhookRequest counts one webhook response.
func RecordWebhookRequest(status int) {
	webhookRequests.WithLabelValues(strconv.Itoa(status)).Inc()
}

// RecordAttempt counts one finished position attempt and its duration.
func RecordAttempt(outcome string, elapsed time.Duration) {
	attempts.WithLabelValues(outcome).Inc()
	attemptDuration.Observe(elapsed.Seconds())
}

// RecordGatewayCall counts one exchange gateway call.
func RecordGatewayCall(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	gatewayCalls.WithLabelValues(op, result).Inc()
}

// RecordUnrecoverableExposure counts an attempt that requires manual
// remediation.
func RecordUnrecoverableExposure() {
	unrecoverableExposure.Inc()
}
