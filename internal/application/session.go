package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

// Metric names recorded by a session.
const (
	MetricSessionDuration = "session_duration"
	MetricMatchups        = "matchups_total"
	MetricReprompts       = "reprompts_total"
	MetricSessionsFailed  = "sessions_failed_total"
	MetricUndecided       = "undecided_items"
	MetricSessionMatchups = "matchups_per_session"
)

const tracerName = "github.com/ahrav/go-bracket/session"

// Report summarizes a finished session.
type Report[T any] struct {
	// SessionID identifies the run in logs and traces.
	SessionID string

	// Judge is the name of the judge that decided the matchups.
	Judge string

	// Ranking holds the payloads, rank 1 first.
	Ranking []T

	// Standings carries position and final score per item, rank 1 first.
	Standings []domain.Standing[T]

	// Matchups is the number of distinct matchups put to the judge.
	Matchups int

	// Judgments is the number of outcomes the tournament accepted.
	Judgments int

	// Rejected counts outcomes the tournament refused.
	Rejected int

	// Reprompts counts how often a matchup was put to the judge again.
	Reprompts int

	Stats      domain.Stats
	Duration   time.Duration
	Degenerate bool
}

// Session drives one tournament to completion with a judge. It is the
// loop of Next, Judge and Resolve, asking the judge again when an answer is
// unusable or the failure is transient.
//
// A Session runs once and is not safe for concurrent use.
type Session[T any] struct {
	id          uuid.UUID
	tournament  *domain.Tournament[T]
	judge       ports.Judge[T]
	logger      *zap.Logger
	metrics     ports.MetricsCollector
	tracer      trace.Tracer
	maxAttempts int
	onJudgment  func(domain.Matchup[T], domain.Outcome)
}

// SessionOption configures a Session.
type SessionOption[T any] func(*Session[T])

// WithLogger sets the structured logger. The default discards output.
func WithLogger[T any](logger *zap.Logger) SessionOption[T] {
	return func(s *Session[T]) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics[T any](metrics ports.MetricsCollector) SessionOption[T] {
	return func(s *Session[T]) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithMaxAttempts bounds how many times one matchup is put to the judge.
// Values below one are ignored.
func WithMaxAttempts[T any](n int) SessionOption[T] {
	return func(s *Session[T]) {
		if n >= 1 {
			s.maxAttempts = n
		}
	}
}

// WithSessionID overrides the generated session ID.
func WithSessionID[T any](id uuid.UUID) SessionOption[T] {
	return func(s *Session[T]) { s.id = id }
}

// WithJudgmentHook registers fn to run after every accepted outcome.
func WithJudgmentHook[T any](fn func(domain.Matchup[T], domain.Outcome)) SessionOption[T] {
	return func(s *Session[T]) { s.onJudgment = fn }
}

// NewSession creates a session ranking items with judge.
func NewSession[T any](items []T, cfg domain.Config, judge ports.Judge[T], opts ...SessionOption[T]) (*Session[T], error) {
	if judge == nil {
		return nil, fmt.Errorf("judge cannot be nil")
	}
	t, err := domain.New(items, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s := &Session[T]{
		id:          uuid.New(),
		tournament:  t,
		judge:       judge,
		logger:      zap.NewNop(),
		metrics:     ports.NopMetrics{},
		tracer:      otel.Tracer(tracerName),
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session_id", s.id.String()), zap.String("judge", judge.Name()))
	return s, nil
}

// ID returns the session identifier.
func (s *Session[T]) ID() uuid.UUID { return s.id }

// Tournament exposes the underlying tournament for inspection.
func (s *Session[T]) Tournament() *domain.Tournament[T] { return s.tournament }

// Run drives the tournament until every item is ranked. It stops at the
// first matchup the judge cannot settle within the attempt limit, or when
// ctx is done.
func (s *Session[T]) Run(ctx context.Context) (*Report[T], error) {
	t := s.tournament
	ctx, span := s.tracer.Start(ctx, "Session.Run", trace.WithAttributes(
		attribute.String("session.id", s.id.String()),
		attribute.String("judge.name", s.judge.Name()),
		attribute.Int("tournament.items", t.Len()),
		attribute.Int("tournament.matchup_size", t.MatchupSize()),
		attribute.String("tournament.direction", t.Direction().String()),
	))
	defer span.End()

	start := time.Now()
	report := &Report[T]{
		SessionID:  s.id.String(),
		Judge:      s.judge.Name(),
		Degenerate: t.Degenerate(),
	}
	s.logger.Info("Session started",
		zap.Int("items", t.Len()),
		zap.Int("matchup_size", t.MatchupSize()),
		zap.Stringer("direction", t.Direction()),
		zap.Bool("degenerate", report.Degenerate))

	fail := func(err error) (*Report[T], error) {
		report.Stats = t.Stats()
		report.Duration = time.Since(start)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.RecordCounter(MetricSessionsFailed, 1, nil)
		s.logger.Error("Session failed",
			zap.Error(err),
			zap.Int("matchups", report.Matchups),
			zap.Int("undecided", t.Undecided()))
		return report, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		m, ok := t.Next()
		if !ok {
			break
		}
		report.Matchups++
		s.metrics.RecordCounter(MetricMatchups, 1, nil)
		s.metrics.RecordGauge(MetricUndecided, float64(t.Undecided()), nil)

		if err := s.settle(ctx, m, report); err != nil {
			return fail(err)
		}
	}

	ranking, err := t.Result()
	if err != nil {
		return fail(err)
	}
	standings, err := t.Rankings()
	if err != nil {
		return fail(err)
	}
	report.Ranking = ranking
	report.Standings = standings
	report.Stats = t.Stats()
	report.Duration = time.Since(start)

	s.metrics.RecordLatency(MetricSessionDuration, report.Duration, nil)
	s.metrics.RecordHistogram(MetricSessionMatchups, float64(report.Matchups), nil)
	span.SetAttributes(
		attribute.Int("session.matchups", report.Matchups),
		attribute.Int("session.reprompts", report.Reprompts),
	)
	span.SetStatus(codes.Ok, "")
	s.logger.Info("Session completed",
		zap.Int("matchups", report.Matchups),
		zap.Int("reprompts", report.Reprompts),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// settle puts m to the judge until the tournament accepts an outcome or
// the attempt limit is reached.
func (s *Session[T]) settle(ctx context.Context, m domain.Matchup[T], report *Report[T]) error {
	for attempt := 1; ; attempt++ {
		outcome, err := s.judge.Judge(ctx, m)
		if err == nil {
			if err = s.tournament.Resolve(outcome); err == nil {
				report.Judgments++
				s.logger.Debug("Matchup resolved",
					zap.Int("seq", m.Seq()),
					zap.Int("size", m.Len()),
					zap.String("strategy", string(outcome.Strategy())),
					zap.Int("attempt", attempt))
				if s.onJudgment != nil {
					s.onJudgment(m, outcome)
				}
				return nil
			}
			report.Rejected++
		}

		if attempt >= s.maxAttempts || ctx.Err() != nil || !shouldReprompt(err) {
			return fmt.Errorf("matchup %d not settled after %d attempt(s): %w", m.Seq(), attempt, err)
		}
		report.Reprompts++
		s.metrics.RecordCounter(MetricReprompts, 1, nil)
		s.logger.Warn("Asking judge again",
			zap.Int("seq", m.Seq()),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
}

// shouldReprompt reports whether asking the judge again could help: the
// answer was malformed or the failure was transient.
func shouldReprompt(err error) bool {
	return errors.Is(err, domain.ErrInvalidMatchupResponse) ||
		errors.Is(err, ports.ErrInvalidResponse) ||
		ports.IsRetryable(err)
}
