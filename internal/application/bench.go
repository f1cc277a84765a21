package application

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ahrav/go-bracket/infrastructure/judges"
	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

// BenchConfig describes a benchmark: many tournaments over the items
// "0".."Items-1" decided by a random judge.
type BenchConfig struct {
	Items       int             `validate:"min=0,max=100000"`
	Iterations  int             `validate:"min=1"`
	MatchupSize int             `validate:"min=2"`
	Strategy    domain.Strategy `validate:"oneof=winner pick order"`
	Direction   domain.Direction

	// Bias makes the judge always favour the strongest candidate, giving
	// the worst case of every pair meeting once, or the weakest, giving the
	// best case of Items-1 matchups.
	Bias judges.Bias `validate:"omitempty,oneof=none strongest weakest"`

	// Seed makes the run reproducible; iteration i uses Seed+i for both
	// the shuffle and the judge.
	Seed uint64

	Concurrency int `validate:"min=0"`
}

// DefaultBenchConfig mirrors a typical pairwise run.
func DefaultBenchConfig() BenchConfig {
	return BenchConfig{
		Items:       30,
		Iterations:  1000,
		MatchupSize: domain.DefaultMatchupSize,
		Strategy:    domain.StrategyPick,
		Direction:   domain.HighestFirst,
		Bias:        judges.BiasNone,
		Concurrency: DefaultBatchConcurrency,
	}
}

// BenchSummary aggregates the matchup counts and timings of a benchmark.
type BenchSummary struct {
	Config BenchConfig

	AvgMatchups float64
	MinMatchups int
	MaxMatchups int

	// AllPairs is N(N-1)/2, the comparisons an exhaustive round robin
	// would need.
	AllPairs int

	TotalDuration time.Duration
	AvgDuration   time.Duration
}

// String renders the summary for terminal output.
func (s BenchSummary) String() string {
	return fmt.Sprintf(
		"items=%d iterations=%d matchup_size=%d strategy=%s direction=%s bias=%s\n"+
			"matchups: avg=%.2f min=%d max=%d (all pairs: %d)\n"+
			"time: total=%v avg=%v",
		s.Config.Items, s.Config.Iterations, s.Config.MatchupSize, s.Config.Strategy,
		s.Config.Direction, s.Config.Bias,
		s.AvgMatchups, s.MinMatchups, s.MaxMatchups, s.AllPairs,
		s.TotalDuration, s.AvgDuration)
}

var benchValidator = validator.New()

// RunBench runs cfg.Iterations independent tournaments as a batch and
// summarizes them.
func RunBench(ctx context.Context, cfg BenchConfig, logger *zap.Logger, metrics ports.MetricsCollector) (*BenchSummary, error) {
	if err := benchValidator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid benchmark configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	items := make([]string, cfg.Items)
	for i := range items {
		items[i] = strconv.Itoa(i)
	}

	jobs := make([]BatchJob[string], cfg.Iterations)
	for i := range jobs {
		seed := cfg.Seed + uint64(i)
		judge, err := judges.NewRandomJudge[string](judges.RandomConfig{
			Strategy: cfg.Strategy,
			Seed:     seed,
			Bias:     cfg.Bias,
		})
		if err != nil {
			return nil, err
		}
		jobs[i] = BatchJob[string]{
			Name:  "iteration-" + strconv.Itoa(i),
			Items: items,
			Config: domain.Config{
				Direction:   cfg.Direction,
				MatchupSize: cfg.MatchupSize,
				Shuffler:    domain.NewSeededShuffler(seed),
			},
			Judge: judge,
		}
	}

	start := time.Now()
	results, err := RunBatch(ctx, jobs, BatchOptions{
		Concurrency: cfg.Concurrency,
		FailFast:    true,
		Logger:      logger,
		Metrics:     metrics,
		MaxAttempts: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("benchmark failed: %w", err)
	}

	summary := &BenchSummary{
		Config:        cfg,
		MinMatchups:   -1,
		AllPairs:      cfg.Items * (cfg.Items - 1) / 2,
		TotalDuration: time.Since(start),
	}
	total := 0
	for _, r := range results {
		n := r.Report.Matchups
		total += n
		if summary.MinMatchups < 0 || n < summary.MinMatchups {
			summary.MinMatchups = n
		}
		summary.MaxMatchups = max(summary.MaxMatchups, n)
	}
	summary.AvgMatchups = float64(total) / float64(len(results))
	summary.AvgDuration = summary.TotalDuration / time.Duration(len(results))
	return summary, nil
}
