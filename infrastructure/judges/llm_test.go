package judges

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
	"github.com/ahrav/go-bracket/internal/testutils"
)

func TestNewLLMJudge(t *testing.T) {
	client := testutils.NewMockLLMClient("mock-model")

	tests := []struct {
		name    string
		client  ports.LLMClient
		cfg     LLMConfig
		wantErr bool
	}{
		{name: "defaults", client: client},
		{name: "nil client", wantErr: true},
		{name: "bad template", client: client, cfg: LLMConfig{Prompt: "{{.Question"}, wantErr: true},
		{name: "temperature out of range", client: client, cfg: LLMConfig{Temperature: 3}, wantErr: true},
		{name: "max tokens too small", client: client, cfg: LLMConfig{MaxTokens: 4}, wantErr: true},
		{name: "unknown strategy", client: client, cfg: LLMConfig{Strategy: "vote"}, wantErr: true},
		{name: "negative prompt limit", client: client, cfg: LLMConfig{MaxPromptTokens: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := NewLLMJudge[string](tt.client, nil, tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "llm:mock-model", j.Name())
		})
	}
}

func TestLLMJudgePrompt(t *testing.T) {
	client := testutils.NewMockLLMClient("mock-model")
	j, err := NewLLMJudge[string](client, nil, LLMConfig{
		Question:    "Which tagline is punchier?",
		Strategy:    domain.StrategyOrder,
		MaxChars:    12,
		Temperature: 0.2,
	})
	require.NoError(t, err)

	client.Enqueue(testutils.MockResponse{Response: `{"ranking": [2, 1], "reasoning": "shorter"}`})
	got, err := j.Judge(context.Background(), matchupOf(t, "Think different,\nthink big", "Just do it"))
	require.NoError(t, err)
	assert.Equal(t, domain.Order(1, 0), got)

	calls := client.Calls()
	require.Len(t, calls, 1)
	prompt := calls[0].Prompt
	assert.Contains(t, prompt, "Which tagline is punchier?")
	assert.Contains(t, prompt, "1. Think dif...\n")
	assert.Contains(t, prompt, "2. Just do it\n")
	assert.Contains(t, prompt, "all 2 candidate numbers, best first")
	assert.Equal(t, 0.2, calls[0].Options["temperature"])
	assert.Equal(t, DefaultLLMMaxTokens, calls[0].Options["max_tokens"])
}

func TestLLMJudgeResponses(t *testing.T) {
	tests := []struct {
		name     string
		strategy domain.Strategy
		response string
		want     domain.Outcome
		wantErr  error
	}{
		{
			name:     "plain json pick",
			strategy: domain.StrategyPick,
			response: `{"ranking": [3], "reasoning": "third is best"}`,
			want:     domain.Pick(2, 0, 1),
		},
		{
			name:     "fenced json winner",
			strategy: domain.StrategyWinner,
			response: "Sure!\n```json\n{\"ranking\": [2], \"reasoning\": \"b\"}\n```",
			want:     domain.Winner(1, 0, 2),
		},
		{
			name:     "json embedded in prose with braces in strings",
			strategy: domain.StrategyOrder,
			response: `My answer: {"ranking": [1, 3, 2], "reasoning": "uses {braces}"} hope that helps`,
			want:     domain.Order(0, 2, 1),
		},
		{
			name:     "no json",
			strategy: domain.StrategyPick,
			response: "I like the second one.",
			wantErr:  ports.ErrInvalidResponse,
		},
		{
			name:     "malformed json",
			strategy: domain.StrategyPick,
			response: `{"ranking": "two"}`,
			wantErr:  ports.ErrInvalidResponse,
		},
		{
			name:     "empty ranking",
			strategy: domain.StrategyPick,
			response: `{"ranking": []}`,
			wantErr:  ports.ErrInvalidResponse,
		},
		{
			name:     "out of range",
			strategy: domain.StrategyPick,
			response: `{"ranking": [4]}`,
			wantErr:  ports.ErrInvalidResponse,
		},
		{
			name:     "partial order",
			strategy: domain.StrategyOrder,
			response: `{"ranking": [1, 2]}`,
			wantErr:  domain.ErrInvalidMatchupResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testutils.NewMockLLMClient("mock-model")
			client.Enqueue(testutils.MockResponse{Response: tt.response})
			j, err := NewLLMJudge[string](client, nil, LLMConfig{Strategy: tt.strategy})
			require.NoError(t, err)

			got, err := j.Judge(context.Background(), matchupOf(t, "a", "b", "c"))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, ports.ErrInvalidResponse)
				assert.False(t, ports.IsRetryable(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLLMJudgeClientErrors(t *testing.T) {
	client := testutils.NewMockLLMClient("mock-model")
	client.Enqueue(testutils.MockResponse{Err: fmt.Errorf("provider: %w", ports.ErrRateLimited)})
	j, err := NewLLMJudge[string](client, nil, LLMConfig{})
	require.NoError(t, err)

	_, err = j.Judge(context.Background(), matchupOf(t, "a", "b"))
	require.Error(t, err)
	assert.True(t, ports.IsRetryable(err), "rate limiting stays retryable through the judge")

	var je *ports.JudgeError
	require.True(t, errors.As(err, &je))
	assert.Equal(t, 1, je.Seq)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`x {"a":{"b":"}"}} y`, `{"a":{"b":"}"}}`},
		{`{"a":"\"}"}`, `{"a":"\"}"}`},
		{"no json", ""},
		{`{"unterminated": 1`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractJSON(tt.in), tt.in)
	}
}

func TestTemplateFuncs(t *testing.T) {
	funcs := TemplateFuncs()
	assert.Equal(t, 3, funcs["add"].(func(int, int) int)(1, 2))
	assert.Equal(t, "a b c", funcs["oneline"].(func(string) string)("a\n b\tc "))
	assert.Equal(t, "héll...", truncate("héllo world", 7))
	assert.Equal(t, "hé", truncate("héllo", 2))
	assert.Equal(t, "", truncate("x", 0))
	assert.Equal(t, "short", truncate("short", 10))
}

func TestLLMJudgePromptTokenLimit(t *testing.T) {
	long := strings.Repeat("a very long candidate ", 40)

	t.Run("oversized prompt is not sent", func(t *testing.T) {
		client := testutils.NewMockLLMClient("mock-model")
		j, err := NewLLMJudge[string](client, nil, LLMConfig{MaxPromptTokens: 100})
		require.NoError(t, err)

		_, err = j.Judge(context.Background(), matchupOf(t, long, "short"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ports.ErrTokenLimitExceeded)
		assert.False(t, ports.IsRetryable(err))
		assert.Empty(t, client.Calls())
	})

	t.Run("prompt within limit is sent", func(t *testing.T) {
		client := testutils.NewMockLLMClient("mock-model")
		j, err := NewLLMJudge[string](client, nil, LLMConfig{MaxPromptTokens: 1000})
		require.NoError(t, err)

		_, err = j.Judge(context.Background(), matchupOf(t, long, "short"))
		require.NoError(t, err)
		assert.Len(t, client.Calls(), 1)
	})

	t.Run("truncation brings the prompt under the limit", func(t *testing.T) {
		client := testutils.NewMockLLMClient("mock-model")
		j, err := NewLLMJudge[string](client, nil, LLMConfig{MaxPromptTokens: 100, MaxChars: 40})
		require.NoError(t, err)

		_, err = j.Judge(context.Background(), matchupOf(t, long, "short"))
		require.NoError(t, err)
	})
}
