package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// EnvVars maps each built-in provider to the environment variable holding
// its API key.
var EnvVars = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"google":    "GOOGLE_API_KEY",
}

// ParseModel splits a "provider/model" reference. The model part may itself
// contain slashes.
func ParseModel(ref string) (provider, model string, err error) {
	provider, model, ok := strings.Cut(ref, "/")
	if !ok || provider == "" || model == "" {
		return "", "", fmt.Errorf("model %q must have the form provider/model", ref)
	}
	return provider, model, nil
}

// NewClientFromEnv creates a client for a "provider/model" reference,
// reading the API key from the provider's environment variable.
func NewClientFromEnv(ref string, timeout time.Duration) (*Client, error) {
	provider, model, err := ParseModel(ref)
	if err != nil {
		return nil, err
	}
	envVar, ok := EnvVars[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %v)", provider, Providers())
	}
	apiKey := os.Getenv(envVar)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set for provider %q", envVar, provider)
	}
	return NewClient(provider, ClientConfig{
		APIKey:  apiKey,
		Model:   model,
		Timeout: timeout,
	})
}
