package application

import (
	"context"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-bracket/infrastructure/judges"
	"github.com/ahrav/go-bracket/internal/domain"
)

func TestRunBench(t *testing.T) {
	cfg := DefaultBenchConfig()
	cfg.Items = 16
	cfg.Iterations = 20
	cfg.Seed = 1

	summary, err := RunBench(context.Background(), cfg, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 120, summary.AllPairs)
	assert.Positive(t, summary.MinMatchups)
	assert.LessOrEqual(t, summary.MinMatchups, summary.MaxMatchups)
	assert.GreaterOrEqual(t, summary.AvgMatchups, float64(summary.MinMatchups))
	assert.LessOrEqual(t, summary.AvgMatchups, float64(summary.MaxMatchups))
	assert.Less(t, summary.AvgMatchups, float64(summary.AllPairs))
	assert.Contains(t, summary.String(), "items=16 iterations=20")
}

func TestRunBench_Reproducible(t *testing.T) {
	cfg := DefaultBenchConfig()
	cfg.Items = 12
	cfg.Iterations = 5
	cfg.Seed = 99

	first, err := RunBench(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	second, err := RunBench(context.Background(), cfg, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, first.AvgMatchups, second.AvgMatchups)
	assert.Equal(t, first.MinMatchups, second.MinMatchups)
	assert.Equal(t, first.MaxMatchups, second.MaxMatchups)
}

// A judge that always favours the current leader meets every pair once,
// and one that always favours the weakest finishes in Items-1 matchups.
func TestRunBench_BiasedJudgesHitTheExtremes(t *testing.T) {
	const items = 20
	tests := []struct {
		bias judges.Bias
		want int
	}{
		{bias: judges.BiasStrongest, want: items * (items - 1) / 2},
		{bias: judges.BiasWeakest, want: items - 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.bias), func(t *testing.T) {
			cfg := DefaultBenchConfig()
			cfg.Items = items
			cfg.Iterations = 10
			cfg.Bias = tt.bias

			summary, err := RunBench(context.Background(), cfg, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, summary.MinMatchups)
			assert.Equal(t, tt.want, summary.MaxMatchups)
		})
	}

	t.Run("strongest is all pairs", func(t *testing.T) {
		cfg := DefaultBenchConfig()
		cfg.Items = items
		cfg.Iterations = 3
		cfg.Bias = judges.BiasStrongest

		summary, err := RunBench(context.Background(), cfg, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, summary.AllPairs, summary.MaxMatchups)
	})
}

func TestRunBench_Strategies(t *testing.T) {
	for _, strategy := range []domain.Strategy{domain.StrategyWinner, domain.StrategyPick, domain.StrategyOrder} {
		t.Run(string(strategy), func(t *testing.T) {
			cfg := DefaultBenchConfig()
			cfg.Items = 10
			cfg.Iterations = 4
			cfg.MatchupSize = 3
			cfg.Strategy = strategy
			cfg.Direction = domain.LowestFirst

			summary, err := RunBench(context.Background(), cfg, nil, nil)
			require.NoError(t, err)
			assert.Positive(t, summary.AvgMatchups)
		})
	}
}

func TestRunBench_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*BenchConfig)
	}{
		{"no iterations", func(c *BenchConfig) { c.Iterations = 0 }},
		{"matchup size one", func(c *BenchConfig) { c.MatchupSize = 1 }},
		{"unknown strategy", func(c *BenchConfig) { c.Strategy = "coin" }},
		{"unknown bias", func(c *BenchConfig) { c.Bias = "lucky" }},
		{"negative items", func(c *BenchConfig) { c.Items = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultBenchConfig()
			tt.modify(&cfg)
			_, err := RunBench(context.Background(), cfg, nil, nil)
			assert.Error(t, err)
		})
	}
}

// Matchups stay below the all-pairs count for random judges.
func TestRunBench_SubQuadraticProperty(t *testing.T) {
	property := func(seed uint64, n uint8) bool {
		items := int(n%48) + 16
		cfg := DefaultBenchConfig()
		cfg.Items = items
		cfg.Iterations = 1
		cfg.Seed = seed
		cfg.Concurrency = 1

		summary, err := RunBench(context.Background(), cfg, nil, nil)
		if err != nil {
			return false
		}
		return summary.MaxMatchups < summary.AllPairs && summary.MinMatchups >= items-1
	}
	require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 25}))
}
