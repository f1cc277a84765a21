package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ahrav/go-bracket/internal/ports"
)

// Ranker ranks lists of strings as a loaded configuration describes. The
// judge stack is built once and reused by every call, so budgets and
// circuit breakers span calls.
type Ranker struct {
	config  *TournamentConfig
	stack   *JudgeStack
	logger  *zap.Logger
	metrics ports.MetricsCollector
}

// NewRanker builds the configured judge with registry. A nil registry uses
// the built-in judge types.
func NewRanker(config *TournamentConfig, registry *JudgeRegistry, deps JudgeDeps, logger *zap.Logger) (*Ranker, error) {
	if config == nil {
		return nil, ports.NewConfigError("config", ports.ErrConfigNotFound)
	}
	if registry == nil {
		registry = NewJudgeRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	stack, err := registry.Build(config, deps)
	if err != nil {
		return nil, err
	}
	return &Ranker{config: config, stack: stack, logger: logger, metrics: deps.Metrics}, nil
}

// Stack returns the judge stack the ranker uses.
func (r *Ranker) Stack() *JudgeStack { return r.stack }

// Rank runs one session over items.
func (r *Ranker) Rank(ctx context.Context, items []string) (*Report[string], error) {
	cfg, err := r.config.DomainConfig()
	if err != nil {
		return nil, ports.NewConfigError("tournament", err)
	}
	session, err := NewSession(items, cfg, r.stack.Judge,
		WithLogger[string](r.logger),
		WithMetrics[string](r.metrics),
		WithMaxAttempts[string](r.config.MaxAttempts()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	r.logger.Debug("Ranking",
		zap.String("config", r.config.Metadata.Name),
		zap.String("session_id", session.ID().String()))
	return session.Run(ctx)
}
