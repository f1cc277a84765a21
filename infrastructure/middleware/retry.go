package middleware

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

type retryJudge[T any] struct {
	wrapped[T]
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// Retry asks the judge again after transient failures, waiting with
// exponential backoff and jitter between attempts. Errors that
// ports.IsRetryable rejects, including an open circuit, are returned at once.
func Retry[T any](maxRetries int, baseDelay, maxDelay time.Duration) Middleware[T] {
	return func(next ports.Judge[T]) ports.Judge[T] {
		return &retryJudge[T]{
			wrapped:    wrapped[T]{next: next},
			maxRetries: maxRetries,
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
		}
	}
}

func (r *retryJudge[T]) Judge(ctx context.Context, m domain.Matchup[T]) (domain.Outcome, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		outcome, err := r.next.Judge(ctx, m)
		if err == nil {
			return outcome, nil
		}
		lastErr = err

		if !ports.IsRetryable(err) || ctx.Err() != nil || attempt == r.maxRetries {
			break
		}

		timer := time.NewTimer(r.delay(attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, judgeError(r.Name(), m.Seq(), ctx.Err())
		case <-timer.C:
		}
	}

	if !ports.IsRetryable(lastErr) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("judge failed after %d attempts: %w", r.maxRetries+1, lastErr)
}

// delay computes exponential backoff with ±25% jitter, honoring a server
// supplied retry-after hint when it is longer.
func (r *retryJudge[T]) delay(attempt int, err error) time.Duration {
	attempt = min(max(attempt, 0), 30)
	d := r.baseDelay * time.Duration(1<<attempt)
	jitter := time.Duration(rand.Float64() * float64(d) * 0.5)
	d = d + jitter - d/4

	var je *ports.JudgeError
	if errors.As(err, &je) && je.RetryAfter != nil && *je.RetryAfter > d {
		d = *je.RetryAfter
	}
	return min(d, r.maxDelay)
}
