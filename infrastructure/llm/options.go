package llm

import (
	"fmt"
	"net/url"
)

// DefaultMaxTokens caps responses when the caller does not say otherwise.
// Judges answer with a short JSON document, so the budget is small.
const DefaultMaxTokens = 1024

// requestOptions is the provider-neutral view of the options map passed to
// Complete.
type requestOptions struct {
	model       string
	maxTokens   int
	temperature *float64
	topP        *float64
	system      string
}

// parseRequestOptions extracts the standard options, falling back to
// defaults for missing or out-of-range values.
func parseRequestOptions(opts map[string]any, defaultModel string) requestOptions {
	o := requestOptions{
		model:     optionValue(opts, "model", defaultModel, func(s string) bool { return s != "" }),
		maxTokens: optionValue(opts, "max_tokens", DefaultMaxTokens, func(n int) bool { return n > 0 }),
		system:    optionValue(opts, "system", "", nil),
	}
	if t, ok := optionFloat(opts, "temperature"); ok && t >= 0 && t <= 2 {
		o.temperature = &t
	}
	if p, ok := optionFloat(opts, "top_p"); ok && p >= 0 && p <= 1 {
		o.topP = &p
	}
	return o
}

// optionValue returns opts[key] when it has type V and passes valid.
func optionValue[V any](opts map[string]any, key string, def V, valid func(V) bool) V {
	raw, ok := opts[key]
	if !ok {
		return def
	}
	v, ok := raw.(V)
	if !ok || (valid != nil && !valid(v)) {
		return def
	}
	return v
}

// optionFloat accepts any numeric option. YAML decodes whole numbers as int,
// so a temperature of 0 arrives as an int.
func optionFloat(opts map[string]any, key string) (float64, bool) {
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// validateBaseURL ensures a custom endpoint is an absolute http(s) URL.
func validateBaseURL(baseURL string) error {
	if baseURL == "" {
		return nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, but got: %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

// estimateTokens is the fallback when a provider omits usage data.
func estimateTokens(reported int64, text string) int {
	if reported > 0 {
		return int(reported)
	}
	return SimpleTokenEstimator{}.EstimateTokens(text)
}
