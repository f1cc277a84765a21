// Package llm provides a uniform client over the LLM providers an LLM judge
// can consult (Anthropic, OpenAI and Google).
//
// Providers implement the small CoreLLM interface; Client adapts a CoreLLM
// to ports.LLMClient. Resilience concerns such as rate limiting, retries and
// circuit breaking live in the judge middleware chain, so a provider issues
// exactly one request per call and classifies failures into ProviderError.
//
// Basic usage:
//
//	client, err := llm.NewClient("openai", llm.ClientConfig{
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "gpt-4o-mini",
//	})
//	response, err := client.Complete(ctx, prompt, map[string]any{"temperature": 0.0})
package llm

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahrav/go-bracket/internal/ports"
)

// CoreLLM defines the minimal interface that LLM providers must implement.
type CoreLLM interface {
	// DoRequest sends a prompt to the provider and returns the response text
	// together with input and output token counts.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the configured model name.
	GetModel() string
}

// TokenEstimator estimates token counts before a request is made.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// ClientConfig holds all configuration options for creating an LLM client.
type ClientConfig struct {
	// APIKey authenticates requests to the LLM provider.
	APIKey string

	// Model specifies which LLM model to use for requests.
	Model string

	// BaseURL overrides the default API endpoint for the provider.
	// Leave empty to use the provider's default endpoint.
	BaseURL string

	// Timeout bounds individual HTTP requests. Zero leaves the SDK default.
	Timeout time.Duration

	// TokenEstimator provides custom token counting logic.
	// If nil, a character-based estimator is used.
	TokenEstimator TokenEstimator
}

// Usage accumulates token consumption across requests.
type Usage struct {
	Requests  int64
	TokensIn  int64
	TokensOut int64
}

// Client implements ports.LLMClient on top of a provider.
type Client struct {
	core      CoreLLM
	estimator TokenEstimator

	requests  atomic.Int64
	tokensIn  atomic.Int64
	tokensOut atomic.Int64
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient creates a client for the named provider.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	factory, ok := lookupProvider(providerType)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %v)", providerType, Providers())
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", providerType, err)
	}
	return NewClientFromCore(core, config.TokenEstimator), nil
}

// NewClientFromCore wraps an existing CoreLLM. It is mainly useful for tests
// and for providers registered outside this package.
func NewClientFromCore(core CoreLLM, estimator TokenEstimator) *Client {
	if estimator == nil {
		estimator = SimpleTokenEstimator{}
	}
	return &Client{core: core, estimator: estimator}
}

// Complete sends a prompt to the LLM and returns the response text.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.CompleteWithUsage(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage sends a prompt and also returns the token counts
// reported by the provider.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	c.requests.Add(1)
	response, tokensIn, tokensOut, err := c.core.DoRequest(ctx, prompt, options)
	c.tokensIn.Add(int64(tokensIn))
	c.tokensOut.Add(int64(tokensOut))
	return response, tokensIn, tokensOut, err
}

// EstimateTokens returns an approximate token count for the given text.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

// GetModel returns the model name of the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// Usage returns the accumulated request and token counts.
func (c *Client) Usage() Usage {
	return Usage{
		Requests:  c.requests.Load(),
		TokensIn:  c.tokensIn.Load(),
		TokensOut: c.tokensOut.Load(),
	}
}

// TokensUsed returns the total input and output tokens consumed so far.
func (c *Client) TokensUsed() int64 {
	return c.tokensIn.Load() + c.tokensOut.Load()
}

// SimpleTokenEstimator assumes roughly four characters per token, which is
// close enough for English prompts.
type SimpleTokenEstimator struct{}

// EstimateTokens implements TokenEstimator.
func (SimpleTokenEstimator) EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// ProviderFactory creates a CoreLLM implementation from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var (
	providersMu sync.RWMutex
	providers   = map[string]ProviderFactory{}
)

// RegisterProviderFactory registers a provider under name, replacing any
// existing registration.
func RegisterProviderFactory(name string, factory ProviderFactory) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[name] = factory
}

func lookupProvider(name string) (ProviderFactory, bool) {
	providersMu.RLock()
	defer providersMu.RUnlock()
	f, ok := providers[name]
	return f, ok
}

// Providers returns the registered provider names in sorted order.
func Providers() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
