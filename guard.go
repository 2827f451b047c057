package enumerator

import (
	"sync"
	"sync/atomic"
)

// guard is the closed/pending state machine shared by every entry point.
//
// It rejects overlapping operations instead of queueing them. Flags are atomic
// so that IsClosed/HasPending can be read from any goroutine; the guard does
// not make concurrent use of one enumerator correct.
type guard[E any] struct {
	closed  atomic.Bool
	pending atomic.Bool
	// forced marks a pending flag raised by SetPending rather than by enter.
	forced atomic.Bool

	mu          sync.Mutex
	deferred    error
	outstanding Callback[E]
}

// enter admits one operation. On success pending is set and the caller must
// eventually call leave. A stored deferred error is consumed and returned.
func (g *guard[E]) enter() error {
	if g.closed.Load() {
		return ErrClosed
	}
	if !g.pending.CompareAndSwap(false, true) {
		return ErrPending
	}
	if err := g.takeDeferred(); err != nil {
		g.pending.Store(false)
		return err
	}
	return nil
}

// leave ends the current operation. Closing operations set closed first so
// there is no window in which neither flag rejects a caller.
func (g *guard[E]) leave(closing bool) {
	if closing {
		g.closed.Store(true)
	}
	g.pending.Store(false)
}

// force raises or clears a pending flag owned by SetPending and returns the
// change in operations in flight (+1, -1 or 0). A flag owned by an admitted
// operation is never cleared here.
func (g *guard[E]) force(pending bool) int {
	if pending {
		if g.pending.CompareAndSwap(false, true) {
			g.forced.Store(true)
			return 1
		}
		return 0
	}
	if g.forced.CompareAndSwap(true, false) {
		g.pending.Store(false)
		return -1
	}
	return 0
}

func (g *guard[E]) takeDeferred() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	err := g.deferred
	g.deferred = nil
	return err
}

func (g *guard[E]) setDeferred(err error) {
	g.mu.Lock()
	g.deferred = err
	g.mu.Unlock()
}

func (g *guard[E]) setOutstanding(cb Callback[E]) {
	g.mu.Lock()
	g.outstanding = cb
	g.mu.Unlock()
}

func (g *guard[E]) takeOutstanding() Callback[E] {
	g.mu.Lock()
	defer g.mu.Unlock()
	cb := g.outstanding
	g.outstanding = nil
	return cb
}
