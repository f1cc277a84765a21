package judges

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

// SimilarityConfig configures a SimilarityJudge.
type SimilarityConfig struct {
	// Reference is the string candidates are measured against.
	Reference string `yaml:"reference" validate:"required"`

	// CaseSensitive disables Unicode case folding before comparison.
	CaseSensitive bool `yaml:"case_sensitive"`

	Strategy domain.Strategy `yaml:"strategy" validate:"omitempty,oneof=winner pick order"`
}

// SimilarityJudge ranks strings by Levenshtein similarity to a reference;
// the closest candidate is the strongest. It is stateless and safe for
// concurrent use.
type SimilarityJudge struct {
	config    SimilarityConfig
	reference string
}

var _ ports.Judge[string] = (*SimilarityJudge)(nil)

// NewSimilarityJudge creates a SimilarityJudge.
func NewSimilarityJudge(cfg SimilarityConfig) (*SimilarityJudge, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	cfg.Strategy = strategyOrDefault(cfg.Strategy)
	j := &SimilarityJudge{config: cfg}
	j.reference = j.prepare(cfg.Reference)
	return j, nil
}

// Name implements ports.Judge.
func (j *SimilarityJudge) Name() string { return "similarity" }

// Judge implements ports.Judge.
func (j *SimilarityJudge) Judge(ctx context.Context, m domain.Matchup[string]) (domain.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payloads := m.Payloads()
	scores := make([]float64, len(payloads))
	for i, p := range payloads {
		scores[i] = j.Similarity(p)
	}

	outcome, err := m.Outcome(j.config.Strategy, rankByScore(scores))
	if err != nil {
		return nil, ports.NewJudgeError(j.Name(), m.Seq(), err)
	}
	return outcome, nil
}

// Similarity returns 1 - distance/maxLen between s and the reference,
// measured in runes.
func (j *SimilarityJudge) Similarity(s string) float64 {
	s = j.prepare(s)
	if s == j.reference {
		return 1.0
	}

	distance := levenshtein.ComputeDistance(s, j.reference)
	maxLen := max(utf8.RuneCountInString(s), utf8.RuneCountInString(j.reference))
	if maxLen == 0 {
		return 1.0
	}
	return max(0, 1.0-float64(distance)/float64(maxLen))
}

func (j *SimilarityJudge) prepare(s string) string {
	if j.config.CaseSensitive {
		return s
	}
	// A Caser keeps state between calls, so each call gets its own.
	return cases.Fold().String(s)
}
