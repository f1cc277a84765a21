// Package judges provides ports.Judge implementations: a seeded random
// oracle, comparator and string-similarity judges, a human judge reading
// from a terminal, and an LLM judge.
//
// Every judge answers with the strategy it was configured for. Judges that
// rank by a score build their outcome with rankByScore so ties keep the
// matchup's presentation order.
package judges

import (
	"cmp"
	"errors"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-bracket/internal/domain"
)

// ErrNilComparator is returned when a comparator judge is built without a
// comparison function.
var ErrNilComparator = errors.New("comparator cannot be nil")

// Package-level validator instance for configuration validation.
var validate = validator.New()

// rankByScore returns candidate indices ordered by score, highest first.
func rankByScore(scores []float64) []int {
	ranking := make([]int, len(scores))
	for i := range ranking {
		ranking[i] = i
	}
	slices.SortStableFunc(ranking, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})
	return ranking
}

// identity returns 0..n-1.
func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func strategyOrDefault(s domain.Strategy) domain.Strategy {
	if s == "" {
		return domain.StrategyPick
	}
	return s
}
