package application

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-bracket/infrastructure/judges"
	"github.com/ahrav/go-bracket/infrastructure/middleware"
	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

// ErrMissingLLMClient is returned when an llm judge is configured without a
// client to talk to.
var ErrMissingLLMClient = errors.New("llm judge requires an LLM client")

// comparators are the named orderings available to the comparator judge.
// Each returns a positive number when a is stronger than b.
var comparators = map[string]func(a, b string) int{
	"lexical": strings.Compare,
	"numeric": compareNumeric,
	"length": func(a, b string) int {
		return cmp.Compare(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	},
}

// compareNumeric orders items by their numeric value. Items that do not
// parse as numbers are weaker than every number and compare lexically among
// themselves.
func compareNumeric(a, b string) int {
	x, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	y, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	switch {
	case errA == nil && errB == nil:
		if c := cmp.Compare(x, y); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	default:
		return strings.Compare(a, b)
	}
}

// JudgeDeps carries the collaborators judges may need.
type JudgeDeps struct {
	// LLMClient backs the llm judge.
	LLMClient ports.LLMClient

	// In and Out are the terminal streams of the interactive judge. They
	// default to os.Stdin and os.Stdout.
	In  io.Reader
	Out io.Writer

	// Metrics receives judge and budget measurements. Nil discards them.
	Metrics ports.MetricsCollector

	// Tokens reports token consumption for the budget. When nil and the
	// LLM client counts its own tokens, that count is used.
	Tokens middleware.TokenSource
}

// JudgeFactory creates a judge of one type. strategy is the tournament's
// resolution strategy, used unless the parameters name their own.
type JudgeFactory func(cfg JudgeConfig, strategy domain.Strategy, deps JudgeDeps) (ports.Judge[string], error)

// JudgeRegistry maps judge types to factories and assembles configured
// judges together with their middleware.
type JudgeRegistry struct {
	mu        sync.RWMutex
	factories map[string]JudgeFactory
}

// NewJudgeRegistry creates a registry with the built-in judge types
// registered: random, comparator, similarity, interactive and llm.
func NewJudgeRegistry() *JudgeRegistry {
	r := &JudgeRegistry{factories: make(map[string]JudgeFactory)}
	r.factories["random"] = newRandomJudge
	r.factories["comparator"] = newComparatorJudge
	r.factories["similarity"] = newSimilarityJudge
	r.factories["interactive"] = newInteractiveJudge
	r.factories["llm"] = newLLMJudge
	return r
}

// Register adds or replaces the factory for judgeType.
func (r *JudgeRegistry) Register(judgeType string, factory JudgeFactory) error {
	if judgeType == "" {
		return fmt.Errorf("judge type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[judgeType] = factory
	return nil
}

// Types returns the registered judge types in sorted order.
func (r *JudgeRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Create builds the bare judge described by cfg, without middleware.
func (r *JudgeRegistry) Create(cfg JudgeConfig, strategy domain.Strategy, deps JudgeDeps) (ports.Judge[string], error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported judge type: %s", cfg.Type)
	}

	judge, err := factory(cfg, strategy, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s judge: %w", cfg.Type, err)
	}
	return judge, nil
}

// JudgeStack is a configured judge wrapped in its middleware, along with
// the stateful pieces of that middleware for inspection.
type JudgeStack struct {
	// Judge is the outermost judge; sessions call this one.
	Judge ports.Judge[string]

	// Base is the judge without middleware.
	Base ports.Judge[string]

	// Budget is nil when no budget is configured.
	Budget *middleware.BudgetManager

	// Breaker is nil when circuit breaking is disabled.
	Breaker *middleware.Breaker
}

// Build creates the configured judge and wraps it, outermost first, in
// tracing, metrics, position swap, retry, circuit breaker, budget, rate
// limit and timeout middleware. Sections left at their zero value are
// skipped.
func (r *JudgeRegistry) Build(config *TournamentConfig, deps JudgeDeps) (*JudgeStack, error) {
	strategy, err := config.Strategy()
	if err != nil {
		return nil, ports.NewConfigError("tournament.strategy", err)
	}
	base, err := r.Create(config.Judge, strategy, deps)
	if err != nil {
		return nil, err
	}

	stack := &JudgeStack{Base: base}
	mws := []middleware.Middleware[string]{
		middleware.Tracing[string]("github.com/ahrav/go-bracket/judge"),
		middleware.Metrics[string](deps.Metrics),
	}
	if config.Judge.PositionSwap {
		mws = append(mws, middleware.PositionSwap[string]())
	}
	if config.Retry.MaxAttempts > 1 {
		wait, maxWait := config.Retry.backoff()
		mws = append(mws, middleware.Retry[string](config.Retry.MaxAttempts-1, wait, maxWait))
	}
	if cb := config.CircuitBreaker; cb.MaxFailures > 0 {
		cooldown := DefaultBreakerBackoff
		if cb.Cooldown > 0 {
			cooldown = time.Duration(cb.Cooldown) * time.Millisecond
		}
		stack.Breaker = middleware.NewBreaker(cb.MaxFailures, cooldown)
		mws = append(mws, middleware.CircuitBreaker[string](stack.Breaker))
	}
	if budget := config.BudgetLimits(); budget.MaxCalls > 0 || budget.MaxTokens > 0 {
		if err := budget.Validate(); err != nil {
			return nil, ports.NewConfigError("budget", err)
		}
		stack.Budget = middleware.NewBudgetManager(budget, tokenSource(deps), deps.Metrics)
		mws = append(mws, middleware.WithBudget[string](stack.Budget))
	}
	if rl := config.RateLimit; rl.RequestsPerSecond > 0 {
		burst := max(rl.Burst, 1)
		mws = append(mws, middleware.RateLimit[string](rate.Limit(rl.RequestsPerSecond), burst))
	}
	if config.Timeout.JudgeTimeout > 0 {
		mws = append(mws, middleware.Timeout[string](time.Duration(config.Timeout.JudgeTimeout)*time.Millisecond))
	}

	stack.Judge = middleware.Chain(base, mws...)
	return stack, nil
}

// tokenCounter is implemented by LLM clients that count their own usage.
type tokenCounter interface {
	TokensUsed() int64
}

func tokenSource(deps JudgeDeps) middleware.TokenSource {
	if deps.Tokens != nil {
		return deps.Tokens
	}
	if tc, ok := deps.LLMClient.(tokenCounter); ok {
		return tc.TokensUsed
	}
	return nil
}

func identityFormat(s string) string { return s }

func newRandomJudge(cfg JudgeConfig, strategy domain.Strategy, _ JudgeDeps) (ports.Judge[string], error) {
	var rc judges.RandomConfig
	if err := decodeParameters(cfg.Parameters, &rc); err != nil {
		return nil, err
	}
	if rc.Strategy == "" {
		rc.Strategy = strategy
	}
	judge, err := judges.NewRandomJudge[string](rc)
	if err != nil {
		return nil, err
	}
	return judge, nil
}

// comparatorParams selects a named ordering for the comparator judge.
type comparatorParams struct {
	Order    string          `yaml:"order"`
	Strategy domain.Strategy `yaml:"strategy"`
}

func newComparatorJudge(cfg JudgeConfig, strategy domain.Strategy, _ JudgeDeps) (ports.Judge[string], error) {
	params := comparatorParams{Order: "lexical"}
	if err := decodeParameters(cfg.Parameters, &params); err != nil {
		return nil, err
	}
	compare, ok := comparators[params.Order]
	if !ok {
		return nil, fmt.Errorf("invalid comparator order: %s", params.Order)
	}
	if params.Strategy == "" {
		params.Strategy = strategy
	}
	judge, err := judges.NewComparatorJudge(compare, params.Strategy)
	if err != nil {
		return nil, err
	}
	return judge, nil
}

func newSimilarityJudge(cfg JudgeConfig, strategy domain.Strategy, _ JudgeDeps) (ports.Judge[string], error) {
	var sc judges.SimilarityConfig
	if err := decodeParameters(cfg.Parameters, &sc); err != nil {
		return nil, err
	}
	if sc.Strategy == "" {
		sc.Strategy = strategy
	}
	judge, err := judges.NewSimilarityJudge(sc)
	if err != nil {
		return nil, err
	}
	return judge, nil
}

func newInteractiveJudge(cfg JudgeConfig, strategy domain.Strategy, deps JudgeDeps) (ports.Judge[string], error) {
	var ic judges.InteractiveConfig
	if err := decodeParameters(cfg.Parameters, &ic); err != nil {
		return nil, err
	}
	if ic.Strategy == "" {
		ic.Strategy = strategy
	}
	in, out := deps.In, deps.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	judge, err := judges.NewInteractiveJudge(in, out, identityFormat, ic)
	if err != nil {
		return nil, err
	}
	return judge, nil
}

func newLLMJudge(cfg JudgeConfig, strategy domain.Strategy, deps JudgeDeps) (ports.Judge[string], error) {
	if deps.LLMClient == nil {
		return nil, ErrMissingLLMClient
	}
	var lc judges.LLMConfig
	if err := decodeParameters(cfg.Parameters, &lc); err != nil {
		return nil, err
	}
	if lc.Strategy == "" {
		lc.Strategy = strategy
	}
	judge, err := judges.NewLLMJudge(deps.LLMClient, identityFormat, lc)
	if err != nil {
		return nil, err
	}
	return judge, nil
}
