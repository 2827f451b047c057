package scheduler

import "sync"

// lifecycleCoordinator encapsulates the shutdown sequence for Scheduler.
// It does not own any state; it orders the steps supplied by the owner.
//
// Close() is safe for concurrent calls; the sequence executes exactly once.
type lifecycleCoordinator struct {
	markClosed   func()
	cancel       func()
	dispatcherWG *sync.WaitGroup
	inflight     *sync.WaitGroup
	drainQueue   func()

	once sync.Once
}

func newLifecycleCoordinator(
	markClosed func(),
	cancel func(),
	dispatcherWG *sync.WaitGroup,
	inflight *sync.WaitGroup,
	drainQueue func(),
) *lifecycleCoordinator {
	return &lifecycleCoordinator{
		markClosed:   markClosed,
		cancel:       cancel,
		dispatcherWG: dispatcherWG,
		inflight:     inflight,
		drainQueue:   drainQueue,
	}
}

// Close executes the shutdown sequence exactly once:
// 1) reject further submissions
// 2) cancel the dispatcher context
// 3) wait for the dispatcher to exit, so no new job starts
// 4) wait for running jobs
// 5) complete the jobs left in the queue
func (lc *lifecycleCoordinator) Close() {
	lc.once.Do(func() {
		if lc.markClosed != nil {
			lc.markClosed()
		}
		if lc.cancel != nil {
			lc.cancel()
		}
		if lc.dispatcherWG != nil {
			lc.dispatcherWG.Wait()
		}
		if lc.inflight != nil {
			lc.inflight.Wait()
		}
		if lc.drainQueue != nil {
			lc.drainQueue()
		}
	})
}
