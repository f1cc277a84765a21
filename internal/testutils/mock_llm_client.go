// Package testutils provides test doubles shared by the judge, application
// and CLI tests.
package testutils

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ahrav/go-bracket/internal/ports"
)

// MockResponse is one scripted reply.
type MockResponse struct {
	// Pattern selects the reply by case-insensitive substring match on the
	// prompt. An empty pattern matches every prompt.
	Pattern string

	// Response is the text returned for matching prompts.
	Response string

	// Err, when set, is returned instead of Response.
	Err error

	// TokensUsed is added to the client's token usage on each match.
	TokensUsed int
}

// MockCall records one Complete invocation.
type MockCall struct {
	Prompt  string
	Options map[string]any
}

// MockLLMClient implements ports.LLMClient with scripted replies. Queued
// replies are consumed first in order; after that the first pattern that
// matches the prompt answers. It is safe for concurrent use.
type MockLLMClient struct {
	mu       sync.Mutex
	model    string
	queue    []MockResponse
	patterns []MockResponse
	calls    []MockCall
	tokens   int64
}

var _ ports.LLMClient = (*MockLLMClient)(nil)

// NewMockLLMClient creates a mock that, until configured otherwise, ranks
// the first candidate best.
func NewMockLLMClient(model string) *MockLLMClient {
	m := &MockLLMClient{model: model}
	m.AddResponse(MockResponse{
		Response:   `{"ranking": [1], "reasoning": "The first candidate is the strongest."}`,
		TokensUsed: 20,
	})
	return m
}

// AddResponse registers a pattern reply. Later registrations take
// precedence over earlier ones.
func (m *MockLLMClient) AddResponse(r MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append([]MockResponse{r}, m.patterns...)
}

// Enqueue appends one-shot replies consumed in order before any pattern.
func (m *MockLLMClient) Enqueue(rs ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, rs...)
}

// Complete implements ports.LLMClient.
func (m *MockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if prompt == "" {
		return "", errors.New("prompt cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Prompt: prompt, Options: options})

	reply, ok := m.next(prompt)
	if !ok {
		return "Mock response for testing purposes.", nil
	}
	m.tokens += int64(reply.TokensUsed)
	if reply.Err != nil {
		return "", reply.Err
	}
	return reply.Response, nil
}

func (m *MockLLMClient) next(prompt string) (MockResponse, bool) {
	if len(m.queue) > 0 {
		r := m.queue[0]
		m.queue = m.queue[1:]
		return r, true
	}
	lower := strings.ToLower(prompt)
	for _, r := range m.patterns {
		if strings.Contains(lower, strings.ToLower(r.Pattern)) {
			return r, true
		}
	}
	return MockResponse{}, false
}

// EstimateTokens implements ports.LLMClient with roughly four characters
// per token.
func (m *MockLLMClient) EstimateTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return max(len(text)/4, 1), nil
}

// GetModel implements ports.LLMClient.
func (m *MockLLMClient) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

// SetModel updates the mock model identifier.
func (m *MockLLMClient) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = model
}

// Calls returns a copy of the recorded invocations.
func (m *MockLLMClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// TokensUsed returns the tokens accumulated by matched replies. Its
// signature fits middleware.TokenSource.
func (m *MockLLMClient) TokensUsed() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens
}

// Reset drops recorded calls, queued replies and token usage while keeping
// pattern replies.
func (m *MockLLMClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.queue = nil
	m.tokens = 0
}
