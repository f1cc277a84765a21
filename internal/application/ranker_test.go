package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-bracket/internal/ports"
	"github.com/ahrav/go-bracket/internal/testutils"
)

func loadConfig(t *testing.T, doc string) *TournamentConfig {
	t.Helper()
	config, err := newLoader(t).LoadFromBytes(context.Background(), []byte(doc))
	require.NoError(t, err)
	return config
}

func TestRanker_Comparator(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "numeric highest first",
			doc: `
version: "1.0.0"
metadata:
  name: "numbers"
tournament:
  matchup_size: 3
  strategy: order
  seed: 5
judge:
  type: comparator
  parameters:
    order: numeric
`,
			want: []string{"100", "42", "7", "3.5", "-2"},
		},
		{
			name: "lexical lowest first with position swap",
			doc: `
version: "1.0.0"
metadata:
  name: "lexical"
tournament:
  direction: lowest_first
  strategy: winner
judge:
  type: comparator
  position_swap: true
  parameters:
    order: lexical
`,
			want: []string{"-2", "100", "3.5", "42", "7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranker, err := NewRanker(loadConfig(t, tt.doc), nil, JudgeDeps{}, nil)
			require.NoError(t, err)

			report, err := ranker.Rank(context.Background(), []string{"42", "7", "100", "-2", "3.5"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, report.Ranking)
		})
	}
}

func TestRanker_SharedBudget(t *testing.T) {
	config := loadConfig(t, `
version: "1.0.0"
metadata:
  name: "budgeted"
judge:
  type: llm
  model: openai/test-model
budget:
  max_calls: 5
`)
	client := testutils.NewMockLLMClient("test-model")
	ranker, err := NewRanker(config, nil, JudgeDeps{LLMClient: client}, nil)
	require.NoError(t, err)

	report, err := ranker.Rank(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, report.Ranking, 3)

	used := ranker.Stack().Budget.Usage().Calls
	assert.Equal(t, int64(report.Judgments), used)

	// The allowance spans calls, so a larger ranking runs out.
	_, err = ranker.Rank(context.Background(), []string{"d", "e", "f", "g", "h", "i"})
	assert.ErrorIs(t, err, ports.ErrBudgetExceeded)
	assert.Equal(t, int64(5), ranker.Stack().Budget.Usage().Calls)
}

func TestNewRanker_Errors(t *testing.T) {
	_, err := NewRanker(nil, nil, JudgeDeps{}, nil)
	assert.ErrorIs(t, err, ports.ErrConfigNotFound)

	config := DefaultTournamentConfig()
	config.Judge.Type = "llm"
	config.Judge.Model = "openai/test-model"
	_, err = NewRanker(config, nil, JudgeDeps{}, nil)
	assert.ErrorIs(t, err, ErrMissingLLMClient)
}
