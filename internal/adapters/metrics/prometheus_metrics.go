// Package metrics provides the Prometheus implementation of services.MetricsReporter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sufield/clusterauth/internal/core/services"
)

const namespace = "clusterauth"

// PrometheusMetrics implements services.MetricsReporter using Prometheus.
type PrometheusMetrics struct {
	verifications *prometheus.CounterVec
	verifyLatency *prometheus.HistogramVec
	decisions     *prometheus.CounterVec
	continuations *prometheus.CounterVec
}

var _ services.MetricsReporter = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers the collectors with reg. A nil reg uses the
// default registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Total number of credential verifications",
		}, []string{"role", "result"}), // result: verified, no_verification, unreachable, invalid_credentials, ...

		verifyLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verification_duration_seconds",
			Help:      "Duration of credential verifications",
			Buckets:   prometheus.DefBuckets,
		}, []string{"role"}),

		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_decisions_total",
			Help:      "Total number of policy decisions resolved",
		}, []string{"result"}), // result: allowed, prevented, orphaned

		continuations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "continuations_total",
			Help:      "Total number of guarded actions",
		}, []string{"state"}), // state: executed, deferred
	}
}

// RecordVerification records one verification attempt.
func (m *PrometheusMetrics) RecordVerification(role, result string, seconds float64) {
	m.verifications.WithLabelValues(role, result).Inc()
	m.verifyLatency.WithLabelValues(role).Observe(seconds)
}

// RecordPolicyDecision records how a decision was applied.
func (m *PrometheusMetrics) RecordPolicyDecision(result string) {
	m.decisions.WithLabelValues(result).Inc()
}

// RecordContinuation records whether a guarded action ran or was deferred.
func (m *PrometheusMetrics) RecordContinuation(state string) {
	m.continuations.WithLabelValues(state).Inc()
}
