package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GoogleDefaultModel is used when the configuration names no model.
const GoogleDefaultModel = "gemini-2.0-flash"

func init() {
	RegisterProviderFactory("google", newGoogleProvider)
}

// googleProvider implements CoreLLM for the Gemini API.
type googleProvider struct {
	client *genai.Client
	model  string
}

func newGoogleProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if looksLikeCredentialsFile(config.APIKey) {
		return nil, fmt.Errorf("service account credentials are not supported; supply a Gemini API key")
	}
	if err := validateBaseURL(config.BaseURL); err != nil {
		return nil, err
	}

	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions.BaseURL = config.BaseURL
	}
	if config.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}
	return &googleProvider{client: client, model: model}, nil
}

// DoRequest implements CoreLLM.
func (p *googleProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	o := parseRequestOptions(opts, p.model)

	gc := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(min(o.maxTokens, math.MaxInt32)),
	}
	if o.temperature != nil {
		gc.Temperature = genai.Ptr(float32(*o.temperature))
	}
	if o.topP != nil {
		gc.TopP = genai.Ptr(float32(*o.topP))
	}
	if o.system != "" {
		gc.SystemInstruction = genai.NewContentFromText(o.system, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := p.client.Models.GenerateContent(ctx, o.model, contents, gc)
	if err != nil {
		return "", 0, 0, p.classify(err)
	}

	text := resp.Text()
	if text == "" {
		return "", 0, 0, NewProviderError("google", ErrorTypeUnknown, 0, "", ErrEmptyResponse)
	}

	var in, out int64
	if u := resp.UsageMetadata; u != nil {
		in, out = int64(u.PromptTokenCount), int64(u.CandidatesTokenCount)
	}
	return text, estimateTokens(in, prompt), estimateTokens(out, text), nil
}

func (p *googleProvider) classify(err error) error {
	if perr := classifyContext("google", err); perr != nil {
		return perr
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" && len(apiErr.Errors) > 0 {
			message = apiErr.Errors[0].Message
		}
		if blockedBySafety(apiErr) {
			return NewProviderError("google", ErrorTypeContentPolicy, apiErr.Code, "request blocked by safety filters", err)
		}
		return classifyStatus("google", apiErr.Code, message, err)
	}
	return NewProviderError("google", ErrorTypeUnknown, 0, "request failed", err)
}

// GetModel implements CoreLLM.
func (p *googleProvider) GetModel() string { return p.model }

func blockedBySafety(apiErr *googleapi.Error) bool {
	lower := strings.ToLower(apiErr.Message)
	if strings.Contains(lower, "safety") || strings.Contains(lower, "blocked") {
		return true
	}
	for _, e := range apiErr.Errors {
		if e.Reason == "SAFETY" || e.Reason == "BLOCKED" {
			return true
		}
	}
	return false
}

// looksLikeCredentialsFile catches a service account path passed where an
// API key is expected.
func looksLikeCredentialsFile(s string) bool {
	lower := strings.ToLower(s)
	return strings.ContainsAny(s, `/\`) ||
		strings.HasSuffix(lower, ".json") ||
		strings.HasSuffix(lower, ".pem")
}
