package judges

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

func newInteractive(t *testing.T, input string, cfg InteractiveConfig) (*InteractiveJudge[string], *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	j, err := NewInteractiveJudge[string](strings.NewReader(input), &out, nil, cfg)
	require.NoError(t, err)
	return j, &out
}

func TestInteractiveJudge(t *testing.T) {
	tests := []struct {
		name     string
		strategy domain.Strategy
		input    string
		want     domain.Outcome
	}{
		{"pick", domain.StrategyPick, "2\n", domain.Pick(1, 0, 2)},
		{"winner", domain.StrategyWinner, "3\n", domain.Winner(2, 0, 1)},
		{"order with spaces", domain.StrategyOrder, "3 1 2\n", domain.Order(2, 0, 1)},
		{"order with commas", domain.StrategyOrder, "2,3,1\n", domain.Order(1, 2, 0)},
		{"re-prompts after malformed input", domain.StrategyPick, "banana\n7\n 1 \n", domain.Pick(0, 1, 2)},
		{"re-prompts after repeated number", domain.StrategyOrder, "1 1 2\n1 2 3\n", domain.Order(0, 1, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, _ := newInteractive(t, tt.input, InteractiveConfig{Strategy: tt.strategy})
			got, err := j.Judge(context.Background(), matchupOf(t, "tea", "coffee", "cocoa"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInteractiveJudgeOutput(t *testing.T) {
	j, out := newInteractive(t, "1\n", InteractiveConfig{Question: "Which is tastier?"})
	_, err := j.Judge(context.Background(), matchupOf(t, "tea", "coffee"))
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Matchup #1: Which is tastier?")
	assert.Contains(t, text, "  1) tea\n")
	assert.Contains(t, text, "  2) coffee\n")
	assert.Contains(t, text, "Pick the best [1-2]: ")
}

func TestInteractiveJudgeGivesUp(t *testing.T) {
	j, out := newInteractive(t, "x\ny\n", InteractiveConfig{MaxAttempts: 2})
	_, err := j.Judge(context.Background(), matchupOf(t, "a", "b"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrInvalidResponse)
	assert.Equal(t, 2, strings.Count(out.String(), "Pick the best"))
}

func TestInteractiveJudgeAborts(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"end of input", ""},
		{"quit command", "q\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, _ := newInteractive(t, tt.input, InteractiveConfig{})
			_, err := j.Judge(context.Background(), matchupOf(t, "a", "b"))
			require.ErrorIs(t, err, ports.ErrJudgeAborted)
			assert.False(t, ports.IsRetryable(err))

			var je *ports.JudgeError
			require.ErrorAs(t, err, &je)
			assert.Equal(t, "interactive", je.Judge)
		})
	}
}

func TestInteractiveJudgeRejectsBadConfig(t *testing.T) {
	_, err := NewInteractiveJudge[string](strings.NewReader(""), &bytes.Buffer{}, nil, InteractiveConfig{MaxAttempts: -1})
	assert.Error(t, err)
}
