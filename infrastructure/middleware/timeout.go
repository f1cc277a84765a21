package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

type timeoutJudge[T any] struct {
	wrapped[T]
	timeout time.Duration
}

// Timeout bounds each judgment. When the per-judgment deadline expires but
// the caller's context is still live, the error wraps ports.ErrTimeout so a
// Retry middleware further out can try again.
func Timeout[T any](timeout time.Duration) Middleware[T] {
	return func(next ports.Judge[T]) ports.Judge[T] {
		return &timeoutJudge[T]{wrapped: wrapped[T]{next: next}, timeout: timeout}
	}
}

func (t *timeoutJudge[T]) Judge(ctx context.Context, m domain.Matchup[T]) (domain.Outcome, error) {
	tctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	outcome, err := t.next.Judge(tctx, m)
	if err != nil && ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return nil, judgeError(t.Name(), m.Seq(), fmt.Errorf("%w after %v: %w", ports.ErrTimeout, t.timeout, err))
	}
	return outcome, err
}
