package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

// CircuitState is the state of a Breaker.
type CircuitState int

const (
	// CircuitClosed lets every judgment through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects judgments until the reset timeout elapses.
	CircuitOpen
	// CircuitHalfOpen lets a single probe through to test recovery.
	CircuitHalfOpen
)

// String returns a readable name for the state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return fmt.Sprintf("circuit(%d)", int(s))
	}
}

// Breaker tracks consecutive judge failures. After threshold failures it
// opens and fails fast with ports.ErrCircuitOpen; once resetTimeout has
// passed a single probe is allowed, and its result closes or reopens the
// circuit.
type Breaker struct {
	threshold    int
	resetTimeout time.Duration
	now          func() time.Time

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker creates a closed breaker.
func NewBreaker(threshold int, resetTimeout time.Duration) *Breaker {
	return &Breaker{
		threshold:    max(threshold, 1),
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

// State returns the current state, moving an open circuit to half-open once
// the reset timeout has elapsed.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.state
}

func (b *Breaker) advance() {
	if b.state == CircuitOpen && b.now().Sub(b.openedAt) >= b.resetTimeout {
		b.state = CircuitHalfOpen
		b.probing = false
	}
}

// allow reserves permission for one call.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()

	switch b.state {
	case CircuitOpen:
		return ports.ErrCircuitOpen
	case CircuitHalfOpen:
		if b.probing {
			return ports.ErrCircuitOpen
		}
		b.probing = true
	}
	return nil
}

// record updates the breaker with the result of a call admitted by allow.
func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !countsAsFailure(err) {
		b.failures = 0
		b.state = CircuitClosed
		b.probing = false
		return
	}

	b.failures++
	if b.state == CircuitHalfOpen || b.failures >= b.threshold {
		b.state = CircuitOpen
		b.openedAt = b.now()
		b.probing = false
	}
}

// countsAsFailure reports whether err says something about the judge's
// health. A cancelled caller or an answer that merely failed to parse does
// not.
func countsAsFailure(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled),
		errors.Is(err, ports.ErrInvalidResponse),
		errors.Is(err, domain.ErrInvalidMatchupResponse):
		return false
	default:
		return true
	}
}

type breakerJudge[T any] struct {
	wrapped[T]
	breaker *Breaker
}

// CircuitBreaker guards a judge with b. The breaker lock is not held while
// the judge runs.
func CircuitBreaker[T any](b *Breaker) Middleware[T] {
	return func(next ports.Judge[T]) ports.Judge[T] {
		return &breakerJudge[T]{wrapped: wrapped[T]{next: next}, breaker: b}
	}
}

func (c *breakerJudge[T]) Judge(ctx context.Context, m domain.Matchup[T]) (domain.Outcome, error) {
	if err := c.breaker.allow(); err != nil {
		return nil, judgeError(c.Name(), m.Seq(), err)
	}
	outcome, err := c.next.Judge(ctx, m)
	c.breaker.record(err)
	return outcome, err
}
