package domain

import "fmt"

// Strategy names one of the interchangeable resolution strategies.
type Strategy string

const (
	// StrategyWinner records a binary winner-absorbs result: one winner and
	// one or more losers.
	StrategyWinner Strategy = "winner"

	// StrategyPick records an n-ary pick-best result: one pick absorbs every
	// other candidate.
	StrategyPick Strategy = "pick"

	// StrategyOrder records a full relative order over the matchup with
	// cascading score accumulation.
	StrategyOrder Strategy = "order"
)

// ParseStrategy converts a configuration value into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyWinner, StrategyPick, StrategyOrder:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Outcome is the judgment for one matchup. The set of outcomes is closed;
// use Winner, Pick or Order to build one.
type Outcome interface {
	// Strategy names the resolution strategy the outcome applies.
	Strategy() Strategy
	sealed()
}

// WinnerOutcome names a winner and the losers it beat.
type WinnerOutcome struct {
	Winner ItemID
	Losers []ItemID
}

// Winner builds a winner-absorbs outcome.
func Winner(winner ItemID, losers ...ItemID) WinnerOutcome {
	return WinnerOutcome{Winner: winner, Losers: losers}
}

// Strategy implements Outcome.
func (WinnerOutcome) Strategy() Strategy { return StrategyWinner }
func (WinnerOutcome) sealed()            {}

// PickOutcome names the best candidate; Others must be every other
// candidate of the matchup.
type PickOutcome struct {
	Pick   ItemID
	Others []ItemID
}

// Pick builds a pick-best outcome.
func Pick(pick ItemID, others ...ItemID) PickOutcome {
	return PickOutcome{Pick: pick, Others: others}
}

// Strategy implements Outcome.
func (PickOutcome) Strategy() Strategy { return StrategyPick }
func (PickOutcome) sealed()            {}

// OrderOutcome is a strict total order over the matchup, strongest first.
type OrderOutcome struct {
	Ordered []ItemID
}

// Order builds a chain outcome from IDs listed strongest first.
func Order(ids ...ItemID) OrderOutcome { return OrderOutcome{Ordered: ids} }

// Strategy implements Outcome.
func (OrderOutcome) Strategy() Strategy { return StrategyOrder }
func (OrderOutcome) sealed()            {}
