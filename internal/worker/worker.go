package worker

import (
	"context"

	"github.com/akolanti/RecallAPI/internal/metrics"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

// Pool runs request-scoped fan-outs with at most limit tasks in flight.
// Nothing outlives a Run call.
type Pool struct {
	limit  int
	logger *logger_i.Logger
}

func NewPool(limit int) *Pool {
	return &Pool{
		limit:  max(limit, 1),
		logger: logger_i.NewLogger("WorkerPool"),
	}
}

func (p *Pool) Limit() int { return p.limit }

// Run calls task for every i in [0, n). The first error cancels the context
// handed to the remaining tasks, and tasks not yet started are skipped.
func (p *Pool) Run(ctx context.Context, n int, task func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			metrics.IncrementActiveWorkerCount()
			defer metrics.DecrementActiveWorkerCount()
			return task(gctx, i)
		})
	}

	if err := g.Wait(); err != nil {
		p.logger.Warn("worker group stopped", "tasks", n, "error", err)
		return err
	}
	return ctx.Err()
}
