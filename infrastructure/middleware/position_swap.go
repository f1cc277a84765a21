package middleware

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

type positionSwap[T any] struct {
	wrapped[T]
}

// PositionSwap mitigates positional bias by asking the judge twice, once in
// presentation order and once reversed, and combining the two answers by
// mean rank. Ties fall back to the first run and then to presentation
// order. The combined outcome uses the first run's strategy.
func PositionSwap[T any]() Middleware[T] {
	return func(next ports.Judge[T]) ports.Judge[T] {
		return &positionSwap[T]{wrapped: wrapped[T]{next: next}}
	}
}

func (ps *positionSwap[T]) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("position-swap-middleware").Start(ctx, name)
	span.SetAttributes(
		attribute.String("middleware.type", "position_swap"),
		attribute.String("wrapped_judge.name", ps.Name()),
	)
	span.SetAttributes(attrs...)
	return ctx, span
}

func (ps *positionSwap[T]) Judge(ctx context.Context, m domain.Matchup[T]) (domain.Outcome, error) {
	if m.Len() < 2 {
		return ps.next.Judge(ctx, m)
	}

	ctx, span := ps.startSpan(ctx, "PositionSwap.Judge", attribute.Int("matchup.seq", m.Seq()))
	defer span.End()

	first, err := ps.run(ctx, m, 0)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("first run failed: %w", err)
	}

	order := make([]int, m.Len())
	for i := range order {
		order[i] = len(order) - 1 - i
	}
	reversed, err := m.Reordered(order)
	if err != nil {
		return nil, err
	}
	second, err := ps.run(ctx, reversed, 1)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("second run failed: %w", err)
	}

	combined, consistent := combineOutcomes(m, first, second)
	span.SetAttributes(
		attribute.Bool("position_swap.consistent", consistent),
		attribute.String("combination_method", "mean_rank"),
	)
	span.SetStatus(codes.Ok, "")
	return combined, nil
}

func (ps *positionSwap[T]) run(ctx context.Context, m domain.Matchup[T], runIndex int) (domain.Outcome, error) {
	ctx, span := ps.startSpan(ctx, fmt.Sprintf("PositionSwap.Run%d", runIndex),
		attribute.Int("run_index", runIndex))
	defer span.End()

	ids := m.IDs()
	order := make([]int64, len(ids))
	for i, id := range ids {
		order[i] = int64(id)
	}
	span.SetAttributes(attribute.Int64Slice("candidate_order", order))

	outcome, err := ps.next.Judge(ctx, m)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if outcome == nil {
		err := fmt.Errorf("%w: judge returned no outcome", ports.ErrInvalidResponse)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return outcome, nil
}

// ranks converts an outcome to a rank per item, 0 being strongest. Winner
// and pick outcomes tie everything that is not the winner at rank 1.
func ranks[T any](m domain.Matchup[T], o domain.Outcome) map[domain.ItemID]float64 {
	r := make(map[domain.ItemID]float64, m.Len())
	for _, id := range m.IDs() {
		r[id] = 1
	}
	switch o := o.(type) {
	case domain.WinnerOutcome:
		r[o.Winner] = 0
	case domain.PickOutcome:
		r[o.Pick] = 0
	case domain.OrderOutcome:
		for i, id := range o.Ordered {
			r[id] = float64(i)
		}
	}
	return r
}

// combineOutcomes merges two judgments of m and reports whether both named
// the same strongest candidate.
func combineOutcomes[T any](m domain.Matchup[T], first, second domain.Outcome) (domain.Outcome, bool) {
	r1, r2 := ranks(m, first), ranks(m, second)

	type scored struct {
		id    domain.ItemID
		index int
		mean  float64
	}
	items := make([]scored, m.Len())
	for i, id := range m.IDs() {
		items[i] = scored{id: id, index: i, mean: (r1[id] + r2[id]) / 2}
	}
	slices.SortFunc(items, func(a, b scored) int {
		return cmp.Or(
			cmp.Compare(a.mean, b.mean),
			cmp.Compare(r1[a.id], r1[b.id]),
			cmp.Compare(a.index, b.index),
		)
	})

	ordered := make([]domain.ItemID, len(items))
	for i, it := range items {
		ordered[i] = it.id
	}
	best := ordered[0]
	consistent := bestOf(first) == bestOf(second)

	switch first.(type) {
	case domain.WinnerOutcome:
		return domain.Winner(best, ordered[1:]...), consistent
	case domain.PickOutcome:
		return domain.Pick(best, ordered[1:]...), consistent
	default:
		return domain.Order(ordered...), consistent
	}
}

func bestOf(o domain.Outcome) domain.ItemID {
	switch o := o.(type) {
	case domain.WinnerOutcome:
		return o.Winner
	case domain.PickOutcome:
		return o.Pick
	case domain.OrderOutcome:
		if len(o.Ordered) > 0 {
			return o.Ordered[0]
		}
	}
	return domain.NoItem
}
