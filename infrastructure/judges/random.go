package judges

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

// Bias steers the random judge toward an edge case.
type Bias string

const (
	// BiasNone draws every outcome uniformly.
	BiasNone Bias = "none"
	// BiasStrongest always favors the highest scoring candidate, which
	// exercises the engine's worst case: every pair meets once.
	BiasStrongest Bias = "strongest"
	// BiasWeakest always favors the lowest scoring candidate, which
	// exercises the engine's best case of N-1 matchups.
	BiasWeakest Bias = "weakest"
)

// ParseBias converts a configuration value into a Bias.
func ParseBias(s string) (Bias, error) {
	switch b := Bias(s); b {
	case "":
		return BiasNone, nil
	case BiasNone, BiasStrongest, BiasWeakest:
		return b, nil
	default:
		return "", fmt.Errorf("unknown bias %q", s)
	}
}

// RandomConfig configures a RandomJudge.
type RandomConfig struct {
	Strategy domain.Strategy `yaml:"strategy" validate:"omitempty,oneof=winner pick order"`
	Seed     uint64          `yaml:"seed"`
	Bias     Bias            `yaml:"bias" validate:"omitempty,oneof=none strongest weakest"`
}

// RandomJudge is a randomized oracle. It is safe for concurrent use.
type RandomJudge[T any] struct {
	strategy domain.Strategy
	bias     Bias

	mu  sync.Mutex
	rng *rand.Rand
}

var _ ports.Judge[string] = (*RandomJudge[string])(nil)

// NewRandomJudge creates a RandomJudge. The same seed yields the same
// sequence of outcomes for the same sequence of matchups.
func NewRandomJudge[T any](cfg RandomConfig) (*RandomJudge[T], error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	bias := cfg.Bias
	if bias == "" {
		bias = BiasNone
	}
	return &RandomJudge[T]{
		strategy: strategyOrDefault(cfg.Strategy),
		bias:     bias,
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0xda942042e4dd58b5)),
	}, nil
}

// Name implements ports.Judge.
func (j *RandomJudge[T]) Name() string { return "random" }

// Judge implements ports.Judge.
func (j *RandomJudge[T]) Judge(ctx context.Context, m domain.Matchup[T]) (domain.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := m.Len()
	var ranking []int
	switch j.bias {
	case BiasStrongest:
		// Candidates arrive ordered by score, so presentation order is
		// already strongest first.
		ranking = identity(n)
	case BiasWeakest:
		ranking = identity(n)
		for i, k := 0, n-1; i < k; i, k = i+1, k-1 {
			ranking[i], ranking[k] = ranking[k], ranking[i]
		}
	default:
		j.mu.Lock()
		ranking = j.rng.Perm(n)
		j.mu.Unlock()
	}

	outcome, err := m.Outcome(j.strategy, ranking)
	if err != nil {
		return nil, ports.NewJudgeError(j.Name(), m.Seq(), err)
	}
	return outcome, nil
}
