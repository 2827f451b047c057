package scheduler

import (
	"context"
	"fmt"

	"github.com/ygrebnov/enumerator/loop"
)

// Job is a unit of work submitted to a Scheduler.
type Job struct {
	// Priority orders queued jobs: lower values are dequeued first.
	// Jobs with equal priority are dequeued in submission order.
	Priority int

	// Ctx is handed to Run. The scheduler never abandons a running job when Ctx
	// is cancelled; Run observes it and returns.
	Ctx context.Context

	// Run does the work on a worker goroutine.
	Run func(ctx context.Context) error

	// Done receives Run's error (or ErrClosed if the job never ran). Optional.
	Done func(err error)

	// Notify is the context Done is delivered on. When nil, Done runs on the worker goroutine.
	Notify loop.Invoker
}

// runJob executes run and converts a panic into ErrJobPanicked.
func runJob(ctx context.Context, run func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()
	return run(ctx)
}

// notify delivers err to j.Done on j.Notify.
func notify(j Job, err error) {
	if j.Done == nil {
		return
	}
	if j.Notify == nil {
		j.Done(err)
		return
	}
	j.Notify.Invoke(func() { j.Done(err) })
}
