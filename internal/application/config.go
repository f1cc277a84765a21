// Package application orchestrates tournaments: it loads and validates
// YAML configuration, builds judges from it, and drives sessions and
// batches of sessions over the domain engine.
package application

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-bracket/infrastructure/middleware"
	"github.com/ahrav/go-bracket/internal/domain"
)

// TournamentConfig is the complete YAML specification of a ranking run:
// how the tournament is shaped, which judge decides matchups, and the
// resilience policies wrapped around that judge.
type TournamentConfig struct {
	// Version specifies the configuration schema version using semantic
	// versioning.
	Version string `yaml:"version" validate:"required,semver"`

	Metadata Metadata `yaml:"metadata" validate:"required"`

	Tournament TournamentSettings `yaml:"tournament"`

	Judge JudgeConfig `yaml:"judge" validate:"required"`

	Retry RetryConfig `yaml:"retry"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Timeout TimeoutConfig `yaml:"timeout"`

	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`

	Budget BudgetConfig `yaml:"budget"`
}

// Metadata provides descriptive information about a configuration.
type Metadata struct {
	Name        string   `yaml:"name" validate:"required,min=1,max=255"`
	Description string   `yaml:"description" validate:"max=1000"`
	Tags        []string `yaml:"tags" validate:"max=20,dive,min=1,max=50"`
}

// TournamentSettings shapes the tournament itself.
type TournamentSettings struct {
	// Direction is highest_first (rank 1 is strongest) or lowest_first.
	Direction string `yaml:"direction" validate:"omitempty,direction"`

	// MatchupSize is the number of candidates per matchup.
	MatchupSize int `yaml:"matchup_size" validate:"omitempty,min=2,max=16"`

	// Strategy is winner, pick or order.
	Strategy string `yaml:"strategy" validate:"omitempty,strategy"`

	// Seed makes the initial shuffle reproducible. Unset draws from the
	// runtime's random source.
	Seed *uint64 `yaml:"seed,omitempty"`

	// MaxAttempts bounds how often one matchup is put to the judge when it
	// answers unusably or fails transiently. Zero uses DefaultMaxAttempts.
	MaxAttempts int `yaml:"max_attempts" validate:"min=0,max=20"`
}

// JudgeConfig selects and configures the judge.
type JudgeConfig struct {
	Type string `yaml:"type" validate:"required,oneof=random comparator similarity interactive llm"`

	// Model names the LLM as "provider/model", such as
	// "anthropic/claude-3-5-haiku-latest". Required for the llm type.
	Model string `yaml:"model,omitempty" validate:"omitempty,modelformat"`

	// PositionSwap asks the judge twice per matchup in opposite
	// presentation orders and combines the answers.
	PositionSwap bool `yaml:"position_swap"`

	// Parameters contains type-specific configuration.
	Parameters yaml.Node `yaml:"parameters"`
}

// RetryConfig configures backoff retries for transient judge failures.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first;
	// zero or one disables retries.
	MaxAttempts int    `yaml:"max_attempts" validate:"min=0,max=10"`
	BackoffType string `yaml:"backoff_type" validate:"omitempty,oneof=constant exponential"`
	InitialWait int    `yaml:"initial_wait_ms" validate:"omitempty,min=0,max=60000"`
	MaxWait     int    `yaml:"max_wait_ms" validate:"omitempty,min=0,max=300000"`
}

// RateLimitConfig paces judge calls. Zero disables pacing.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0,max=10000"`
	Burst             int     `yaml:"burst" validate:"min=0,max=10000"`
}

// TimeoutConfig bounds each judgment. Zero disables the bound.
type TimeoutConfig struct {
	JudgeTimeout int `yaml:"judge_timeout_ms" validate:"min=0,max=3600000"`
}

// CircuitBreakerConfig configures fail-fast behavior. Zero MaxFailures
// disables the breaker.
type CircuitBreakerConfig struct {
	MaxFailures int `yaml:"max_failures" validate:"min=0,max=1000"`
	Cooldown    int `yaml:"cooldown_ms" validate:"omitempty,min=1,max=3600000"`
}

// BudgetConfig limits judge consumption. Zero means unlimited.
type BudgetConfig struct {
	MaxCalls  int64 `yaml:"max_calls" validate:"min=0,max=1000000"`
	MaxTokens int64 `yaml:"max_tokens" validate:"min=0,max=100000000"`
}

// Defaults applied by the accessors below.
const (
	DefaultMaxAttempts    = 3
	DefaultInitialWait    = 500 * time.Millisecond
	DefaultMaxWait        = 10 * time.Second
	DefaultBreakerBackoff = 30 * time.Second
)

// DomainConfig converts the tournament settings for domain.New.
func (c *TournamentConfig) DomainConfig() (domain.Config, error) {
	cfg := domain.DefaultConfig()
	if c.Tournament.Direction != "" {
		dir, err := domain.ParseDirection(c.Tournament.Direction)
		if err != nil {
			return domain.Config{}, err
		}
		cfg.Direction = dir
	}
	if c.Tournament.MatchupSize != 0 {
		cfg.MatchupSize = c.Tournament.MatchupSize
	}
	if c.Tournament.Seed != nil {
		cfg.Shuffler = domain.NewSeededShuffler(*c.Tournament.Seed)
	}
	if err := cfg.Validate(); err != nil {
		return domain.Config{}, fmt.Errorf("tournament settings: %w", err)
	}
	return cfg, nil
}

// Strategy returns the configured resolution strategy, pick by default.
func (c *TournamentConfig) Strategy() (domain.Strategy, error) {
	if c.Tournament.Strategy == "" {
		return domain.StrategyPick, nil
	}
	return domain.ParseStrategy(c.Tournament.Strategy)
}

// MaxAttempts returns the per-matchup attempt limit.
func (c *TournamentConfig) MaxAttempts() int {
	if c.Tournament.MaxAttempts == 0 {
		return DefaultMaxAttempts
	}
	return c.Tournament.MaxAttempts
}

// BudgetLimits converts the budget section for the budget middleware.
func (c *TournamentConfig) BudgetLimits() middleware.Budget {
	return middleware.Budget{MaxCalls: c.Budget.MaxCalls, MaxTokens: c.Budget.MaxTokens}
}

// backoff returns the base and maximum retry delay.
func (r RetryConfig) backoff() (base, maxDelay time.Duration) {
	base = DefaultInitialWait
	if r.InitialWait > 0 {
		base = time.Duration(r.InitialWait) * time.Millisecond
	}
	maxDelay = DefaultMaxWait
	if r.MaxWait > 0 {
		maxDelay = time.Duration(r.MaxWait) * time.Millisecond
	}
	if r.BackoffType == "constant" {
		maxDelay = base
	}
	return base, max(base, maxDelay)
}

// DefaultTournamentConfig returns a configuration ranking with a seeded
// random judge, useful as a starting point.
func DefaultTournamentConfig() *TournamentConfig {
	return &TournamentConfig{
		Version:  "1.0.0",
		Metadata: Metadata{Name: "default"},
		Tournament: TournamentSettings{
			Direction:   domain.HighestFirst.String(),
			MatchupSize: domain.DefaultMatchupSize,
			Strategy:    string(domain.StrategyPick),
		},
		Judge: JudgeConfig{Type: "random"},
	}
}
