package judges

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-bracket/internal/domain"
)

func TestNewSimilarityJudge(t *testing.T) {
	_, err := NewSimilarityJudge(SimilarityConfig{})
	assert.Error(t, err, "reference is required")

	_, err = NewSimilarityJudge(SimilarityConfig{Reference: "x", Strategy: "vote"})
	assert.Error(t, err)
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name          string
		reference     string
		caseSensitive bool
		input         string
		want          float64
	}{
		{"identical", "kitten", false, "kitten", 1.0},
		{"classic distance", "kitten", false, "sitting", 1 - 3.0/7},
		{"case folded", "Straße", false, "STRASSE", 1.0},
		{"case sensitive", "abc", true, "ABC", 0.0},
		{"unicode counts runes", "café", false, "cafe", 0.75},
		{"both empty", "", false, "", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &SimilarityJudge{config: SimilarityConfig{Reference: tt.reference, CaseSensitive: tt.caseSensitive}}
			j.reference = j.prepare(tt.reference)
			assert.InDelta(t, tt.want, j.Similarity(tt.input), 1e-9)
		})
	}
}

func TestSimilarityJudgeRanksClosestFirst(t *testing.T) {
	j, err := NewSimilarityJudge(SimilarityConfig{Reference: "golang", Strategy: domain.StrategyOrder})
	require.NoError(t, err)

	m := matchupOf(t, "java", "GoLang", "gopher", "gola")
	got, err := j.Judge(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, domain.Order(1, 3, 2, 0), got)

	ranked := rankAll[string](t, j, []string{"rust", "golang!", "golang", "go"}, domain.Config{MatchupSize: 2})
	assert.Equal(t, []string{"golang", "golang!", "go", "rust"}, ranked)
}
