package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

// Metric names recorded by the Metrics middleware.
const (
	MetricJudgeLatency  = "judge_latency_seconds"
	MetricJudgeRequests = "judge_requests_total"
)

type metricsJudge[T any] struct {
	wrapped[T]
	collector ports.MetricsCollector
}

// Metrics records the latency and status of every judgment.
func Metrics[T any](collector ports.MetricsCollector) Middleware[T] {
	if collector == nil {
		collector = ports.NopMetrics{}
	}
	return func(next ports.Judge[T]) ports.Judge[T] {
		return &metricsJudge[T]{wrapped: wrapped[T]{next: next}, collector: collector}
	}
}

func (mj *metricsJudge[T]) Judge(ctx context.Context, m domain.Matchup[T]) (domain.Outcome, error) {
	start := time.Now()
	outcome, err := mj.next.Judge(ctx, m)

	labels := map[string]string{
		"judge":  mj.Name(),
		"status": statusOf(err),
	}
	mj.collector.RecordLatency(MetricJudgeLatency, time.Since(start), labels)
	mj.collector.RecordCounter(MetricJudgeRequests, 1, labels)
	return outcome, err
}

// statusOf maps an error to a low-cardinality label value.
func statusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ports.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ports.ErrBudgetExceeded):
		return "budget_exceeded"
	case errors.Is(err, ports.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ports.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ports.ErrInvalidResponse), errors.Is(err, domain.ErrInvalidMatchupResponse):
		return "invalid_response"
	case errors.Is(err, context.Canceled), errors.Is(err, ports.ErrJudgeAborted):
		return "aborted"
	default:
		return "error"
	}
}
