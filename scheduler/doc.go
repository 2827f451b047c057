// Package scheduler runs blocking work off the caller's goroutine.
//
// Jobs are dequeued by priority (lower first, FIFO among equals) and run on a
// dynamic pool, one goroutine per job, or on a fixed pool of MaxWorkers slots.
// Each job's completion is posted to the loop.Invoker it names.
//
// A panic in a job is recovered and reported as ErrJobPanicked. Close waits
// for running jobs and completes the queued ones with ErrClosed, so every
// submitted job hears back exactly once.
package scheduler
