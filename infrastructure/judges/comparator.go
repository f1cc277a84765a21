package judges

import (
	"context"
	"fmt"
	"slices"

	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

// ComparatorJudge decides matchups with a comparison function. The
// greatest candidate under cmp is the strongest. Equal candidates keep
// presentation order.
type ComparatorJudge[T any] struct {
	cmp      func(a, b T) int
	strategy domain.Strategy
}

// NewComparatorJudge creates a ComparatorJudge.
func NewComparatorJudge[T any](cmp func(a, b T) int, strategy domain.Strategy) (*ComparatorJudge[T], error) {
	if cmp == nil {
		return nil, ErrNilComparator
	}
	strategy = strategyOrDefault(strategy)
	if _, err := domain.ParseStrategy(string(strategy)); err != nil {
		return nil, fmt.Errorf("comparator judge: %w", err)
	}
	return &ComparatorJudge[T]{cmp: cmp, strategy: strategy}, nil
}

// Name implements ports.Judge.
func (j *ComparatorJudge[T]) Name() string { return "comparator" }

// Judge implements ports.Judge.
func (j *ComparatorJudge[T]) Judge(ctx context.Context, m domain.Matchup[T]) (domain.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payloads := m.Payloads()
	ranking := identity(len(payloads))
	slices.SortStableFunc(ranking, func(a, b int) int {
		return j.cmp(payloads[b], payloads[a])
	})

	outcome, err := m.Outcome(j.strategy, ranking)
	if err != nil {
		return nil, ports.NewJudgeError(j.Name(), m.Seq(), err)
	}
	return outcome, nil
}
