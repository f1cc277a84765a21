// Package middleware provides cross-cutting concerns for judges: pacing,
// deadlines, retries, circuit breaking, budgets, metrics, tracing and
// position-swap bias mitigation.
//
// Every concern is a Middleware that wraps a ports.Judge and returns another,
// so they compose in any order:
//
//	judge := middleware.Chain(base,
//	    middleware.Tracing[string]("bracket"),
//	    middleware.Metrics[string](collector),
//	    middleware.Retry[string](3, 200*time.Millisecond, 5*time.Second),
//	    middleware.CircuitBreaker[string](cb),
//	    middleware.RateLimit[string](2, 4),
//	    middleware.Timeout[string](30*time.Second),
//	)
//
// The first middleware is the outermost.
package middleware

import (
	"github.com/ahrav/go-bracket/internal/ports"
)

// Middleware wraps a judge to add behavior around each judgment.
type Middleware[T any] func(ports.Judge[T]) ports.Judge[T]

// Chain applies mws to judge so that mws[0] runs first.
func Chain[T any](judge ports.Judge[T], mws ...Middleware[T]) ports.Judge[T] {
	for i := len(mws) - 1; i >= 0; i-- {
		judge = mws[i](judge)
	}
	return judge
}

// wrapped carries the next judge and forwards its name so log lines and
// spans identify the underlying judge rather than the decorator.
type wrapped[T any] struct {
	next ports.Judge[T]
}

func (w wrapped[T]) Name() string { return w.next.Name() }

// judgeError tags err with the judge and matchup unless it already carries
// that context.
func judgeError(name string, seq int, err error) error {
	if je, ok := err.(*ports.JudgeError); ok {
		return je
	}
	return ports.NewJudgeError(name, seq, err)
}
