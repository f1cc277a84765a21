package judges

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

// DefaultInteractiveAttempts is how many malformed answers a human may give
// for one matchup before the judge gives up on it.
const DefaultInteractiveAttempts = 3

var errMalformedAnswer = errors.New("malformed answer")

// InteractiveConfig configures an InteractiveJudge.
type InteractiveConfig struct {
	Strategy domain.Strategy `yaml:"strategy" validate:"omitempty,oneof=winner pick order"`

	// Question is printed above each matchup, such as "Which is tastier?".
	Question string `yaml:"question"`

	// MaxAttempts bounds re-prompts on malformed input. Zero uses
	// DefaultInteractiveAttempts.
	MaxAttempts int `yaml:"max_attempts" validate:"min=0,max=100"`
}

// InteractiveJudge asks a human. Candidates are printed numbered from 1;
// the answer is one number for the winner and pick strategies or every
// number, best first, for the order strategy. Typing "q" or closing the
// input aborts with ports.ErrJudgeAborted.
type InteractiveJudge[T any] struct {
	config  InteractiveConfig
	format  func(T) string
	out     io.Writer
	mu      sync.Mutex
	scanner *bufio.Scanner
}

// NewInteractiveJudge creates an InteractiveJudge reading answers from in
// and writing prompts to out. A nil format uses fmt.Sprint.
func NewInteractiveJudge[T any](in io.Reader, out io.Writer, format func(T) string, cfg InteractiveConfig) (*InteractiveJudge[T], error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	cfg.Strategy = strategyOrDefault(cfg.Strategy)
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultInteractiveAttempts
	}
	if format == nil {
		format = func(v T) string { return fmt.Sprint(v) }
	}
	return &InteractiveJudge[T]{
		config:  cfg,
		format:  format,
		out:     out,
		scanner: bufio.NewScanner(in),
	}, nil
}

// Name implements ports.Judge.
func (j *InteractiveJudge[T]) Name() string { return "interactive" }

// Judge implements ports.Judge.
func (j *InteractiveJudge[T]) Judge(ctx context.Context, m domain.Matchup[T]) (domain.Outcome, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.present(m)
	for attempt := 1; attempt <= j.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fmt.Fprint(j.out, j.prompt(m.Len()))

		if !j.scanner.Scan() {
			err := ports.ErrJudgeAborted
			if serr := j.scanner.Err(); serr != nil {
				err = fmt.Errorf("%w: %w", ports.ErrJudgeAborted, serr)
			}
			return nil, ports.NewJudgeError(j.Name(), m.Seq(), err)
		}

		line := strings.TrimSpace(j.scanner.Text())
		if line == "q" || line == "quit" {
			return nil, ports.NewJudgeError(j.Name(), m.Seq(), ports.ErrJudgeAborted)
		}

		ranking, err := j.parse(line, m.Len())
		if err != nil {
			fmt.Fprintf(j.out, "  %v\n", err)
			continue
		}
		outcome, err := m.Outcome(j.config.Strategy, ranking)
		if err != nil {
			fmt.Fprintf(j.out, "  %v\n", err)
			continue
		}
		return outcome, nil
	}

	return nil, ports.NewJudgeError(j.Name(), m.Seq(),
		fmt.Errorf("%w: no usable answer after %d attempts", ports.ErrInvalidResponse, j.config.MaxAttempts))
}

func (j *InteractiveJudge[T]) present(m domain.Matchup[T]) {
	fmt.Fprintf(j.out, "\nMatchup #%d", m.Seq())
	if j.config.Question != "" {
		fmt.Fprintf(j.out, ": %s", j.config.Question)
	}
	fmt.Fprintln(j.out)
	for i, p := range m.Payloads() {
		fmt.Fprintf(j.out, "  %d) %s\n", i+1, j.format(p))
	}
}

func (j *InteractiveJudge[T]) prompt(n int) string {
	if j.config.Strategy == domain.StrategyOrder {
		return fmt.Sprintf("Order all %d from best to worst (e.g. %s): ", n, exampleOrder(n))
	}
	return fmt.Sprintf("Pick the best [1-%d]: ", n)
}

// parse turns a line of 1-based numbers into 0-based candidate indices.
func (j *InteractiveJudge[T]) parse(line string, n int) ([]int, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
	want := 1
	if j.config.Strategy == domain.StrategyOrder {
		want = n
	}
	if len(fields) != want {
		return nil, fmt.Errorf("%w: expected %d number(s), got %d", errMalformedAnswer, want, len(fields))
	}

	ranking := make([]int, len(fields))
	for i, f := range fields {
		k, err := strconv.Atoi(f)
		if err != nil || k < 1 || k > n {
			return nil, fmt.Errorf("%w: %q is not a number between 1 and %d", errMalformedAnswer, f, n)
		}
		ranking[i] = k - 1
	}
	return ranking, nil
}

func exampleOrder(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = strconv.Itoa(n - i)
	}
	return strings.Join(parts, " ")
}
