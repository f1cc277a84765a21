package middleware

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

// Budget defines resource consumption limits for a judge.
type Budget struct {
	// MaxTokens limits the total number of tokens that can be consumed.
	// Zero means unlimited token usage.
	MaxTokens int64

	// MaxCalls limits the total number of judgments that can be requested.
	// Zero means unlimited calls.
	MaxCalls int64
}

// Validate rejects negative limits.
func (b Budget) Validate() error {
	if b.MaxTokens < 0 {
		return fmt.Errorf("budget: max_tokens cannot be negative, got %d", b.MaxTokens)
	}
	if b.MaxCalls < 0 {
		return fmt.Errorf("budget: max_calls cannot be negative, got %d", b.MaxCalls)
	}
	return nil
}

// BudgetUsage is the consumption tracked by a BudgetManager.
type BudgetUsage struct {
	Calls  int64
	Tokens int64
}

// TokenSource reports the tokens consumed so far, typically by reading an
// LLM client's usage counters.
type TokenSource func() int64

// Budget usage ratios that produce span events.
const (
	budgetWarningThreshold  = 0.8
	budgetCriticalThreshold = 0.9
)

// BudgetManager enforces call and token limits across every judgment of a
// session. Limits are checked before each call so a judgment that is
// already underway is never discarded; the call after the limit is crossed
// fails with a *ports.BudgetExceededError.
type BudgetManager struct {
	budget  Budget
	tokens  TokenSource
	metrics ports.MetricsCollector
	calls   atomic.Int64
}

// NewBudgetManager creates a BudgetManager. tokens may be nil when the judge
// does not consume tokens, in which case MaxTokens is not enforced.
func NewBudgetManager(budget Budget, tokens TokenSource, metrics ports.MetricsCollector) *BudgetManager {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &BudgetManager{budget: budget, tokens: tokens, metrics: metrics}
}

// Usage returns the consumption so far.
func (bm *BudgetManager) Usage() BudgetUsage {
	u := BudgetUsage{Calls: bm.calls.Load()}
	if bm.tokens != nil {
		u.Tokens = bm.tokens()
	}
	return u
}

// check verifies that token usage leaves room for another call.
func (bm *BudgetManager) check(usage BudgetUsage, judge string) error {
	if bm.budget.MaxTokens > 0 && bm.tokens != nil && usage.Tokens >= bm.budget.MaxTokens {
		return ports.NewBudgetExceededError("tokens", bm.budget.MaxTokens, usage.Tokens, judge)
	}
	return nil
}

// reserve claims one call. The counter is incremented before the limit is
// compared so concurrent judgments can never claim more than MaxCalls.
func (bm *BudgetManager) reserve(judge string) error {
	n := bm.calls.Add(1)
	if bm.budget.MaxCalls > 0 && n > bm.budget.MaxCalls {
		bm.calls.Add(-1)
		return ports.NewBudgetExceededError("calls", bm.budget.MaxCalls, n-1, judge)
	}
	return nil
}

type budgetJudge[T any] struct {
	wrapped[T]
	manager *BudgetManager
}

// WithBudget enforces bm's limits on a judge. Several judges wrapped with
// the same manager share one allowance.
func WithBudget[T any](bm *BudgetManager) Middleware[T] {
	return func(next ports.Judge[T]) ports.Judge[T] {
		return &budgetJudge[T]{wrapped: wrapped[T]{next: next}, manager: bm}
	}
}

func (bj *budgetJudge[T]) Judge(ctx context.Context, m domain.Matchup[T]) (domain.Outcome, error) {
	bm := bj.manager
	ctx, span := otel.Tracer("budget-manager").Start(ctx, "BudgetManager.Judge")
	defer span.End()

	labels := map[string]string{"judge": bj.Name(), "budget_limit": bm.limitLabel()}
	usage := bm.Usage()
	bm.annotate(span, usage)
	bm.thresholdEvents(span, usage)

	err := bm.check(usage, bj.Name())
	if err == nil {
		err = bm.reserve(bj.Name())
	}
	if err != nil {
		be := err.(*ports.BudgetExceededError)
		span.AddEvent("budget.exceeded", trace.WithAttributes(
			attribute.String("limit_type", be.LimitType),
			attribute.Int64("limit_value", be.Limit),
			attribute.Int64("used_value", be.Used),
		))
		span.SetStatus(codes.Error, "Budget limit exceeded")
		bm.metrics.RecordCounter("budget_exceeded_total", 1, map[string]string{
			"judge":      bj.Name(),
			"limit_type": be.LimitType,
		})
		return nil, judgeError(bj.Name(), m.Seq(), err)
	}

	start := time.Now()
	outcome, err := bj.next.Judge(ctx, m)
	bm.metrics.RecordLatency("budget_manager_execution", time.Since(start), labels)

	usage = bm.Usage()
	bm.annotate(span, usage)
	bm.metrics.RecordGauge("budget_calls_used", float64(usage.Calls), labels)
	bm.metrics.RecordGauge("budget_tokens_used", float64(usage.Tokens), labels)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.AddEvent("budget.usage_tracked", trace.WithAttributes(
		attribute.Int64("tokens_consumed", usage.Tokens),
		attribute.Int64("calls_made", usage.Calls),
	))
	span.SetStatus(codes.Ok, "")
	return outcome, nil
}

func (bm *BudgetManager) annotate(span trace.Span, usage BudgetUsage) {
	span.SetAttributes(
		attribute.Int64("budget.tokens_used", usage.Tokens),
		attribute.Int64("budget.calls_made", usage.Calls),
	)
	if bm.budget.MaxTokens > 0 {
		span.SetAttributes(
			attribute.Int64("budget.max_tokens", bm.budget.MaxTokens),
			attribute.Int64("budget.remaining_tokens", bm.budget.MaxTokens-usage.Tokens),
		)
	}
	if bm.budget.MaxCalls > 0 {
		span.SetAttributes(
			attribute.Int64("budget.max_calls", bm.budget.MaxCalls),
			attribute.Int64("budget.remaining_calls", bm.budget.MaxCalls-usage.Calls),
		)
	}
}

func (bm *BudgetManager) thresholdEvents(span trace.Span, usage BudgetUsage) {
	emit := func(resource string, used, limit int64) {
		if limit <= 0 {
			return
		}
		ratio := float64(used) / float64(limit)
		name := ""
		switch {
		case ratio >= budgetCriticalThreshold:
			name = "budget.threshold.critical"
		case ratio >= budgetWarningThreshold:
			name = "budget.threshold.warning"
		default:
			return
		}
		span.AddEvent(name, trace.WithAttributes(
			attribute.String("resource_type", resource),
			attribute.Float64("usage_percentage", ratio*100),
		))
	}
	emit("tokens", usage.Tokens, bm.budget.MaxTokens)
	emit("calls", usage.Calls, bm.budget.MaxCalls)
}

func (bm *BudgetManager) limitLabel() string {
	switch {
	case bm.budget.MaxTokens > 0 && bm.budget.MaxCalls > 0:
		return "tokens_and_calls"
	case bm.budget.MaxTokens > 0:
		return "tokens_only"
	case bm.budget.MaxCalls > 0:
		return "calls_only"
	default:
		return "unlimited"
	}
}
