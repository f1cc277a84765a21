package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

type tracingJudge[T any] struct {
	wrapped[T]
	tracer trace.Tracer
}

// Tracing wraps each judgment in a span from the global tracer provider.
func Tracing[T any](instrumentation string) Middleware[T] {
	tracer := otel.Tracer(instrumentation)
	return func(next ports.Judge[T]) ports.Judge[T] {
		return &tracingJudge[T]{wrapped: wrapped[T]{next: next}, tracer: tracer}
	}
}

func (tj *tracingJudge[T]) Judge(ctx context.Context, m domain.Matchup[T]) (domain.Outcome, error) {
	ctx, span := tj.tracer.Start(ctx, "Judge.Judge", trace.WithAttributes(
		attribute.String("judge.name", tj.Name()),
		attribute.Int("matchup.seq", m.Seq()),
		attribute.Int("matchup.size", m.Len()),
	))
	defer span.End()

	outcome, err := tj.next.Judge(ctx, m)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("outcome.strategy", string(outcome.Strategy())))
	span.SetStatus(codes.Ok, "")
	return outcome, nil
}
