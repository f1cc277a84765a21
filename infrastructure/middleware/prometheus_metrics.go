package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-bracket/internal/ports"
)

// PrometheusMetrics implements ports.MetricsCollector using Prometheus.
// Judge and budget metrics get dedicated vectors; any other metric name is
// recorded in a generic vector labelled by name.
type PrometheusMetrics struct {
	judgeLatency   *prometheus.HistogramVec
	judgeRequests  *prometheus.CounterVec
	budgetExceeded *prometheus.CounterVec
	budgetUsage    *prometheus.GaugeVec

	operationLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	stateGauges      *prometheus.GaugeVec
	observations     *prometheus.HistogramVec
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
// A nil reg uses the default registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		judgeLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bracket_judge_latency_seconds",
				Help:    "Time taken by a judge to decide one matchup.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"judge", "status"},
		),
		judgeRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bracket_judge_requests_total",
				Help: "Total number of matchups sent to judges.",
			},
			[]string{"judge", "status"},
		),
		budgetExceeded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bracket_budget_exceeded_total",
				Help: "Total number of judgments refused because a budget ran out.",
			},
			[]string{"judge", "limit_type"},
		),
		budgetUsage: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bracket_budget_usage",
				Help: "Current budget consumption per judge.",
			},
			[]string{"judge", "resource"},
		),
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bracket_operation_duration_seconds",
				Help:    "Execution time of tournament operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bracket_operations_total",
				Help: "Total number of tournament operations by kind.",
			},
			[]string{"operation"},
		),
		stateGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bracket_state",
				Help: "Current values of tournament state.",
			},
			[]string{"metric"},
		),
		observations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bracket_observations",
				Help:    "Distribution of tournament measurements such as matchups per ranking.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"metric"},
		),
	}
}

func labelOr(labels map[string]string, key, fallback string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return fallback
}

// RecordLatency implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	switch operation {
	case MetricJudgeLatency:
		pm.judgeLatency.WithLabelValues(
			labelOr(labels, "judge", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Observe(duration.Seconds())
	default:
		pm.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// RecordCounter implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case MetricJudgeRequests:
		pm.judgeRequests.WithLabelValues(
			labelOr(labels, "judge", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Add(value)
	case "budget_exceeded_total":
		pm.budgetExceeded.WithLabelValues(
			labelOr(labels, "judge", "unknown"),
			labelOr(labels, "limit_type", "unknown"),
		).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	switch metric {
	case "budget_calls_used":
		pm.budgetUsage.WithLabelValues(labelOr(labels, "judge", "unknown"), "calls").Set(value)
	case "budget_tokens_used":
		pm.budgetUsage.WithLabelValues(labelOr(labels, "judge", "unknown"), "tokens").Set(value)
	default:
		pm.stateGauges.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, _ map[string]string) {
	pm.observations.WithLabelValues(metric).Observe(value)
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
