package judges

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/template"

	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

const (
	// DefaultLLMQuestion is asked when no question is configured.
	DefaultLLMQuestion = "Which of the following candidates is best?"

	// DefaultLLMPrompt lists the candidates numbered from 1.
	DefaultLLMPrompt = `{{.Question}}

Candidates:
{{range .Candidates}}{{.Index}}. {{oneline .Text}}
{{end}}`

	DefaultLLMMaxTokens   = 256
	DefaultLLMTemperature = 0.0
)

// LLMConfig configures an LLMJudge.
type LLMConfig struct {
	// Prompt is a text/template rendered with Question, Strategy, Count and
	// Candidates (each with a 1-based Index and Text).
	Prompt string `yaml:"prompt"`

	Question string `yaml:"question"`

	Strategy domain.Strategy `yaml:"strategy" validate:"omitempty,oneof=winner pick order"`

	Temperature float64 `yaml:"temperature" validate:"min=0,max=2"`

	MaxTokens int `yaml:"max_tokens" validate:"omitempty,min=16,max=8192"`

	// MaxChars truncates each candidate in the prompt. Zero keeps them whole.
	MaxChars int `yaml:"max_chars" validate:"min=0"`

	// MaxPromptTokens rejects a matchup whose rendered prompt the client
	// estimates above this many tokens, before any request is sent. Zero
	// disables the check.
	MaxPromptTokens int `yaml:"max_prompt_tokens" validate:"min=0"`
}

// LLMResponse is the JSON document the model must answer with.
type LLMResponse struct {
	// Ranking lists 1-based candidate numbers, best first.
	Ranking   []int  `json:"ranking" validate:"required,min=1"`
	Reasoning string `json:"reasoning"`
}

type promptCandidate struct {
	Index int
	Text  string
}

type promptData struct {
	Question   string
	Strategy   domain.Strategy
	Count      int
	Candidates []promptCandidate
}

// LLMJudge asks a language model to rank the candidates of each matchup.
// A response that cannot be parsed or names candidates that do not exist
// yields a *ports.JudgeError wrapping ports.ErrInvalidResponse.
type LLMJudge[T any] struct {
	client ports.LLMClient
	config LLMConfig
	format func(T) string
	prompt *template.Template
}

// NewLLMJudge creates an LLMJudge. A nil format uses fmt.Sprint.
func NewLLMJudge[T any](client ports.LLMClient, format func(T) string, cfg LLMConfig) (*LLMJudge[T], error) {
	if client == nil {
		return nil, errors.New("LLM client cannot be nil")
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg.Strategy = strategyOrDefault(cfg.Strategy)
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultLLMPrompt
	}
	if cfg.Question == "" {
		cfg.Question = DefaultLLMQuestion
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultLLMMaxTokens
	}
	if format == nil {
		format = func(v T) string { return fmt.Sprint(v) }
	}

	tmpl, err := template.New("judgePrompt").Funcs(TemplateFuncs()).Option("missingkey=error").Parse(cfg.Prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse judge prompt template: %w", err)
	}

	return &LLMJudge[T]{client: client, config: cfg, format: format, prompt: tmpl}, nil
}

// Name implements ports.Judge.
func (j *LLMJudge[T]) Name() string { return "llm:" + j.client.GetModel() }

// Judge implements ports.Judge.
func (j *LLMJudge[T]) Judge(ctx context.Context, m domain.Matchup[T]) (domain.Outcome, error) {
	prompt, err := j.render(m)
	if err != nil {
		return nil, ports.NewJudgeError(j.Name(), m.Seq(), err)
	}
	if err := j.checkPromptSize(prompt); err != nil {
		return nil, ports.NewJudgeError(j.Name(), m.Seq(), err)
	}

	options := map[string]any{
		"temperature": j.config.Temperature,
		"max_tokens":  j.config.MaxTokens,
	}
	response, err := j.client.Complete(ctx, prompt, options)
	if err != nil {
		return nil, ports.NewJudgeError(j.Name(), m.Seq(), fmt.Errorf("LLM call failed: %w", err))
	}

	ranking, err := j.parse(response, m.Len())
	if err != nil {
		return nil, ports.NewJudgeError(j.Name(), m.Seq(), err)
	}
	outcome, err := m.Outcome(j.config.Strategy, ranking)
	if err != nil {
		return nil, ports.NewJudgeError(j.Name(), m.Seq(), fmt.Errorf("%w: %w", ports.ErrInvalidResponse, err))
	}
	return outcome, nil
}

func (j *LLMJudge[T]) render(m domain.Matchup[T]) (string, error) {
	data := promptData{
		Question: j.config.Question,
		Strategy: j.config.Strategy,
		Count:    m.Len(),
	}
	for i, p := range m.Payloads() {
		text := j.format(p)
		if j.config.MaxChars > 0 {
			text = truncate(text, j.config.MaxChars)
		}
		data.Candidates = append(data.Candidates, promptCandidate{Index: i + 1, Text: text})
	}

	var buf bytes.Buffer
	if err := j.prompt.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	buf.WriteString("\nIMPORTANT: You must respond with valid JSON in exactly this format:\n")
	if j.config.Strategy == domain.StrategyOrder {
		fmt.Fprintf(&buf, `{"ranking": [<all %d candidate numbers, best first>], "reasoning": "<short explanation>"}`, m.Len())
	} else {
		buf.WriteString(`{"ranking": [<number of the best candidate>], "reasoning": "<short explanation>"}`)
	}
	return buf.String(), nil
}

// checkPromptSize enforces MaxPromptTokens with the client's estimate.
func (j *LLMJudge[T]) checkPromptSize(prompt string) error {
	if j.config.MaxPromptTokens == 0 {
		return nil
	}
	tokens, err := j.client.EstimateTokens(prompt)
	if err != nil {
		return fmt.Errorf("failed to estimate prompt tokens: %w", err)
	}
	if tokens > j.config.MaxPromptTokens {
		return fmt.Errorf("%w: prompt needs about %d tokens, limit is %d",
			ports.ErrTokenLimitExceeded, tokens, j.config.MaxPromptTokens)
	}
	return nil
}

// parse extracts 0-based candidate indices from a model response.
func (j *LLMJudge[T]) parse(response string, n int) ([]int, error) {
	raw := extractJSON(response)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object in response (length: %d chars)", ports.ErrInvalidResponse, len(response))
	}

	var parsed LLMResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %w", ports.ErrInvalidResponse, err)
	}
	if err := validate.Struct(parsed); err != nil {
		return nil, fmt.Errorf("%w: invalid response structure: %w", ports.ErrInvalidResponse, err)
	}

	ranking := make([]int, len(parsed.Ranking))
	for i, k := range parsed.Ranking {
		if k < 1 || k > n {
			return nil, fmt.Errorf("%w: candidate %d out of range 1..%d", ports.ErrInvalidResponse, k, n)
		}
		ranking[i] = k - 1
	}
	return ranking, nil
}
