// Package ports defines the interfaces that form the contract between the
// domain/application layers and the infrastructure layer.
package ports

import (
	"context"

	"github.com/ahrav/go-bracket/internal/domain"
)

// Judge decides the outcome of a matchup. Implementations range from
// deterministic comparators to humans at a terminal and LLM providers.
//
// Judge receives an immutable snapshot and must answer in terms of the
// snapshot's item IDs. A judge that cannot decide returns an error; the
// session decides whether to ask again based on the error's kind.
//
// Judges shared across concurrent sessions must be safe for concurrent use.
type Judge[T any] interface {
	// Name identifies the judge in logs, traces and metrics.
	Name() string

	// Judge returns the outcome for m. Implementations should respect ctx
	// cancellation and return promptly.
	Judge(ctx context.Context, m domain.Matchup[T]) (domain.Outcome, error)
}

// JudgeFunc adapts a function to the Judge interface.
type JudgeFunc[T any] func(ctx context.Context, m domain.Matchup[T]) (domain.Outcome, error)

// Name implements Judge.
func (f JudgeFunc[T]) Name() string { return "func" }

// Judge implements Judge.
func (f JudgeFunc[T]) Judge(ctx context.Context, m domain.Matchup[T]) (domain.Outcome, error) {
	return f(ctx, m)
}
