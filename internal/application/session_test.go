package application

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ahrav/go-bracket/infrastructure/judges"
	"github.com/ahrav/go-bracket/infrastructure/middleware"
	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

func numbers(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func comparatorJudge(t *testing.T, strategy domain.Strategy) ports.Judge[int] {
	t.Helper()
	j, err := judges.NewComparatorJudge(cmp.Compare[int], strategy)
	require.NoError(t, err)
	return j
}

// scripted answers with each function in turn, repeating the last one.
type scripted struct {
	steps []func(domain.Matchup[int]) (domain.Outcome, error)
	calls atomic.Int32
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Judge(_ context.Context, m domain.Matchup[int]) (domain.Outcome, error) {
	i := int(s.calls.Add(1)) - 1
	return s.steps[min(i, len(s.steps)-1)](m)
}

func pickFirst(m domain.Matchup[int]) (domain.Outcome, error) {
	return m.Outcome(domain.StrategyPick, []int{0})
}

// countingMetrics sums counters by name.
type countingMetrics struct {
	ports.NopMetrics
	mu       sync.Mutex
	counters map[string]int64
}

func (c *countingMetrics) RecordCounter(name string, v float64, _ map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counters == nil {
		c.counters = make(map[string]int64)
	}
	c.counters[name] += int64(v)
}

func (c *countingMetrics) count(name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[name]
}

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(t.Context())
	})
	return recorder
}

func TestSession_RanksWithComparator(t *testing.T) {
	strategies := []domain.Strategy{domain.StrategyWinner, domain.StrategyPick, domain.StrategyOrder}
	directions := []domain.Direction{domain.HighestFirst, domain.LowestFirst}

	for _, strategy := range strategies {
		for _, direction := range directions {
			for _, size := range []int{2, 3, 5} {
				name := fmt.Sprintf("%s/%s/size=%d", strategy, direction, size)
				t.Run(name, func(t *testing.T) {
					items := numbers(25)
					session, err := NewSession(items, domain.Config{
						Direction:   direction,
						MatchupSize: size,
						Shuffler:    domain.NewSeededShuffler(7),
					}, comparatorJudge(t, strategy))
					require.NoError(t, err)

					report, err := session.Run(context.Background())
					require.NoError(t, err)

					want := slices.Clone(items)
					if direction == domain.HighestFirst {
						slices.Reverse(want)
					}
					if diff := gocmp.Diff(want, report.Ranking); diff != "" {
						t.Errorf("ranking mismatch (-want +got):\n%s", diff)
					}

					require.Len(t, report.Standings, len(items))
					for i, s := range report.Standings {
						assert.Equal(t, i+1, s.Position)
						assert.Equal(t, report.Ranking[i], s.Payload)
					}
					assert.Equal(t, report.Stats.Matchups, report.Matchups)
					assert.Equal(t, report.Stats.Resolutions, report.Judgments)
					assert.Equal(t, len(items), report.Stats.Finalizations)
					assert.Zero(t, report.Reprompts)
					assert.Equal(t, session.ID().String(), report.SessionID)
					assert.Equal(t, "comparator", report.Judge)
				})
			}
		}
	}
}

func TestSession_SmallInputs(t *testing.T) {
	tests := []struct {
		name           string
		items          []int
		size           int
		wantDegenerate bool
		wantMatchups   int
	}{
		{name: "empty", items: nil, size: 2, wantDegenerate: true},
		{name: "single", items: []int{42}, size: 2, wantDegenerate: true},
		{name: "fewer than matchup size", items: []int{1, 2, 3}, size: 4, wantDegenerate: true},
		{name: "exactly matchup size", items: []int{1, 2}, size: 2, wantMatchups: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := NewSession(tt.items, domain.Config{MatchupSize: tt.size},
				comparatorJudge(t, domain.StrategyOrder))
			require.NoError(t, err)

			report, err := session.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantDegenerate, report.Degenerate)
			assert.Len(t, report.Ranking, len(tt.items))
			if tt.wantMatchups > 0 {
				assert.Equal(t, tt.wantMatchups, report.Matchups)
			}
			if len(tt.items) <= 1 {
				assert.Zero(t, report.Matchups)
			}
		})
	}
}

func TestSession_RepromptsOnRejectedOutcome(t *testing.T) {
	judge := &scripted{steps: []func(domain.Matchup[int]) (domain.Outcome, error){
		func(m domain.Matchup[int]) (domain.Outcome, error) {
			// Names an item outside the matchup.
			return domain.Pick(domain.ItemID(99), m.IDs()...), nil
		},
		pickFirst,
	}}

	core, logs := observer.New(zapcore.DebugLevel)
	session, err := NewSession([]int{1, 2}, domain.DefaultConfig(), judge,
		WithLogger[int](zap.New(core)))
	require.NoError(t, err)

	report, err := session.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, 1, report.Reprompts)
	assert.Equal(t, 1, report.Judgments)
	assert.Equal(t, 1, report.Stats.Rejections)
	assert.Equal(t, int32(2), judge.calls.Load())

	warnings := logs.FilterMessage("Asking judge again")
	require.Equal(t, 1, warnings.Len())
	entry := warnings.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, session.ID().String(), entry.ContextMap()["session_id"])
	assert.Equal(t, "scripted", entry.ContextMap()["judge"])

	assert.Equal(t, 1, logs.FilterMessage("Session completed").Len())
}

func TestSession_RepromptsOnTransientErrors(t *testing.T) {
	judge := &scripted{steps: []func(domain.Matchup[int]) (domain.Outcome, error){
		func(m domain.Matchup[int]) (domain.Outcome, error) {
			return nil, ports.NewJudgeError("scripted", m.Seq(), ports.ErrServiceUnavailable)
		},
		func(m domain.Matchup[int]) (domain.Outcome, error) {
			return nil, ports.NewJudgeError("scripted", m.Seq(), ports.ErrInvalidResponse)
		},
		pickFirst,
	}}

	session, err := NewSession([]int{1, 2}, domain.DefaultConfig(), judge, WithMaxAttempts[int](3))
	require.NoError(t, err)

	report, err := session.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Reprompts)
	assert.Zero(t, report.Rejected)
}

func TestSession_GivesUp(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		maxAttempts int
		wantCalls   int32
		wantErr     error
	}{
		{
			name:        "invalid answers exhaust attempts",
			err:         ports.ErrInvalidResponse,
			maxAttempts: 2,
			wantCalls:   2,
			wantErr:     ports.ErrInvalidResponse,
		},
		{
			name:        "aborted judge is not asked again",
			err:         ports.ErrJudgeAborted,
			maxAttempts: 5,
			wantCalls:   1,
			wantErr:     ports.ErrJudgeAborted,
		},
		{
			name:        "open circuit is not asked again",
			err:         ports.ErrCircuitOpen,
			maxAttempts: 5,
			wantCalls:   1,
			wantErr:     ports.ErrCircuitOpen,
		},
		{
			name:        "exhausted budget is not asked again",
			err:         ports.NewBudgetExceededError("calls", 1, 1, "scripted"),
			maxAttempts: 5,
			wantCalls:   1,
			wantErr:     ports.ErrBudgetExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			judge := &scripted{steps: []func(domain.Matchup[int]) (domain.Outcome, error){
				func(m domain.Matchup[int]) (domain.Outcome, error) {
					return nil, ports.NewJudgeError("scripted", m.Seq(), tt.err)
				},
			}}
			metrics := &countingMetrics{}
			core, logs := observer.New(zapcore.InfoLevel)
			session, err := NewSession([]int{1, 2, 3}, domain.DefaultConfig(), judge,
				WithMaxAttempts[int](tt.maxAttempts),
				WithMetrics[int](metrics),
				WithLogger[int](zap.New(core)))
			require.NoError(t, err)

			report, err := session.Run(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), "matchup 1 not settled")
			assert.Equal(t, tt.wantCalls, judge.calls.Load())

			require.NotNil(t, report, "a failed run still reports progress")
			assert.Nil(t, report.Ranking)
			assert.Equal(t, 1, report.Matchups)
			assert.Equal(t, int64(1), metrics.count(MetricSessionsFailed))
			assert.Equal(t, 1, logs.FilterMessage("Session failed").Len())
		})
	}
}

func TestSession_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	judge := &scripted{steps: []func(domain.Matchup[int]) (domain.Outcome, error){
		func(m domain.Matchup[int]) (domain.Outcome, error) {
			cancel()
			return pickFirst(m)
		},
	}}

	session, err := NewSession(numbers(10), domain.DefaultConfig(), judge)
	require.NoError(t, err)

	_, err = session.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), judge.calls.Load())
}

func TestSession_Tracing(t *testing.T) {
	recorder := installRecorder(t)

	session, err := NewSession(numbers(6), domain.Config{MatchupSize: 3, Direction: domain.LowestFirst},
		comparatorJudge(t, domain.StrategyPick))
	require.NoError(t, err)
	report, err := session.Run(context.Background())
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "Session.Run", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, session.ID().String(), attrs["session.id"].AsString())
	assert.Equal(t, int64(6), attrs["tournament.items"].AsInt64())
	assert.Equal(t, int64(3), attrs["tournament.matchup_size"].AsInt64())
	assert.Equal(t, "lowest_first", attrs["tournament.direction"].AsString())
	assert.Equal(t, int64(report.Matchups), attrs["session.matchups"].AsInt64())
}

func TestSession_TracingRecordsFailure(t *testing.T) {
	recorder := installRecorder(t)

	judge := &scripted{steps: []func(domain.Matchup[int]) (domain.Outcome, error){
		func(m domain.Matchup[int]) (domain.Outcome, error) { return nil, ports.ErrJudgeAborted },
	}}
	session, err := NewSession(numbers(3), domain.DefaultConfig(), judge)
	require.NoError(t, err)
	_, err = session.Run(context.Background())
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestSession_PrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := middleware.NewPrometheusMetrics(reg)

	session, err := NewSession(numbers(8), domain.DefaultConfig(),
		comparatorJudge(t, domain.StrategyPick), WithMetrics[int](metrics))
	require.NoError(t, err)
	report, err := session.Run(context.Background())
	require.NoError(t, err)

	expected := fmt.Sprintf(`
# HELP bracket_operations_total Total number of tournament operations by kind.
# TYPE bracket_operations_total counter
bracket_operations_total{operation="matchups_total"} %d
`, report.Matchups)
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "bracket_operations_total"))

	count, err := testutil.GatherAndCount(reg, "bracket_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "session duration is observed once")
}

func TestSession_Options(t *testing.T) {
	id := uuid.MustParse("6f1d3c1e-7a6b-4c1f-9d2e-0b8a4e5f6a7b")
	var hooked []int

	session, err := NewSession([]int{3, 1, 2}, domain.DefaultConfig(), comparatorJudge(t, domain.StrategyWinner),
		WithSessionID[int](id),
		WithMaxAttempts[int](0),
		WithLogger[int](nil),
		WithMetrics[int](nil),
		WithJudgmentHook[int](func(m domain.Matchup[int], o domain.Outcome) {
			hooked = append(hooked, m.Seq())
			assert.Equal(t, domain.StrategyWinner, o.Strategy())
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, id, session.ID())
	assert.Equal(t, DefaultMaxAttempts, session.maxAttempts, "invalid attempt limits are ignored")

	report, err := session.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id.String(), report.SessionID)
	assert.Len(t, hooked, report.Judgments)
	assert.True(t, session.Tournament().Done())
}

func TestNewSession_Errors(t *testing.T) {
	_, err := NewSession[int](nil, domain.DefaultConfig(), nil)
	assert.Error(t, err)

	_, err = NewSession(numbers(3), domain.Config{MatchupSize: 1}, comparatorJudge(t, domain.StrategyPick))
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestShouldReprompt(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{domain.ErrInvalidMatchupResponse, true},
		{ports.NewJudgeError("j", 1, ports.ErrInvalidResponse), true},
		{ports.NewJudgeError("j", 1, ports.ErrRateLimited), true},
		{fmt.Errorf("wrapped: %w", ports.ErrTimeout), true},
		{ports.ErrJudgeAborted, false},
		{ports.ErrAuthenticationFailed, false},
		{errors.Join(ports.ErrCircuitOpen, ports.ErrServiceUnavailable), false},
		{context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(strconv.Quote(tt.err.Error()), func(t *testing.T) {
			assert.Equal(t, tt.want, shouldReprompt(tt.err))
		})
	}
}
