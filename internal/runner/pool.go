package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Job is one unit of work. Jobs record their own failures; a job that
// returns does not affect its siblings.
type Job func(ctx context.Context)

// RunPool runs jobs with at most maxWorkers in flight and waits for all of
// them. maxWorkers of 1 runs the jobs inline, in order.
func RunPool(ctx context.Context, maxWorkers int, jobs []Job) {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if maxWorkers == 1 {
		for _, job := range jobs {
			job(ctx)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(maxWorkers)
	for _, job := range jobs {
		g.Go(func() error {
			job(ctx)
			return nil
		})
	}
	_ = g.Wait()
}
