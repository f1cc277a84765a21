package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

type rateLimited[T any] struct {
	wrapped[T]
	limiter *rate.Limiter
}

// RateLimit paces judgments with a token bucket. The limiter is shared by
// every judge the middleware wraps, so one RateLimit value bounds the total
// rate across concurrent sessions.
func RateLimit[T any](limit rate.Limit, burst int) Middleware[T] {
	limiter := rate.NewLimiter(limit, burst)
	return func(next ports.Judge[T]) ports.Judge[T] {
		return &rateLimited[T]{wrapped: wrapped[T]{next: next}, limiter: limiter}
	}
}

func (r *rateLimited[T]) Judge(ctx context.Context, m domain.Matchup[T]) (domain.Outcome, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, judgeError(r.Name(), m.Seq(), err)
	}
	return r.next.Judge(ctx, m)
}
