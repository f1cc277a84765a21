package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-bracket/internal/domain"
	"github.com/ahrav/go-bracket/internal/ports"
)

// DefaultBatchConcurrency bounds concurrent sessions when none is given.
const DefaultBatchConcurrency = 4

// BatchJob is one independent tournament in a batch.
type BatchJob[T any] struct {
	Name   string
	Items  []T
	Config domain.Config

	// Judge decides this job's matchups. Judges shared between jobs must be
	// safe for concurrent use.
	Judge ports.Judge[T]
}

// BatchResult pairs a job with its report or error.
type BatchResult[T any] struct {
	Job    string
	Report *Report[T]
	Err    error
}

// BatchOptions tunes RunBatch.
type BatchOptions struct {
	// Concurrency bounds sessions running at once. Zero uses
	// DefaultBatchConcurrency.
	Concurrency int

	// FailFast cancels the remaining jobs after the first failure and
	// returns that failure.
	FailFast bool

	Logger  *zap.Logger
	Metrics ports.MetricsCollector

	// MaxAttempts is passed to every session.
	MaxAttempts int
}

// RunBatch runs every job in its own session, at most opts.Concurrency at a
// time. Results are returned in job order. Unless opts.FailFast is set, a
// failing job is reported in its result and the others carry on.
func RunBatch[T any](ctx context.Context, jobs []BatchJob[T], opts BatchOptions) ([]BatchResult[T], error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}

	results := make([]BatchResult[T], len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	start := time.Now()
	for i, job := range jobs {
		results[i].Job = job.Name
		g.Go(func() error {
			report, err := runJob(gctx, job, logger, opts)
			results[i].Report, results[i].Err = report, err
			if err != nil && opts.FailFast {
				return fmt.Errorf("job %s: %w", job.Name, err)
			}
			return nil
		})
	}
	err := g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	logger.Info("Batch finished",
		zap.Int("jobs", len(jobs)),
		zap.Int("failed", failed),
		zap.Int("concurrency", concurrency),
		zap.Duration("duration", time.Since(start)))
	return results, err
}

func runJob[T any](ctx context.Context, job BatchJob[T], logger *zap.Logger, opts BatchOptions) (*Report[T], error) {
	session, err := NewSession(job.Items, job.Config, job.Judge,
		WithLogger[T](logger.With(zap.String("job", job.Name))),
		WithMetrics[T](opts.Metrics),
		WithMaxAttempts[T](opts.MaxAttempts),
	)
	if err != nil {
		return nil, err
	}
	return session.Run(ctx)
}
