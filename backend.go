package enumerator

import (
	"context"

	"github.com/ygrebnov/enumerator/scheduler"
)

// Backend is the minimal blocking implementation behind an Enumerator.
// An Enumerator never calls a Backend from two goroutines at once.
//
// A Backend must not keep a reference to the Enumerator wrapping it: the
// enumerator would stay reachable forever and an unclosed one would never
// release its backend. Backends that need the guard implement GuardBinder.
type Backend[E any] interface {
	// NextEntry returns the next entry. ok is false at the end of the sequence.
	// It should observe ctx and return ctx.Err() promptly once ctx is done.
	NextEntry(ctx context.Context) (entry E, ok bool, err error)

	// CloseBackend releases the underlying handle. It is called at most once.
	CloseBackend(ctx context.Context) error
}

// AsyncBatchBackend is implemented by backends with a native asynchronous
// batch fetch. Without it, Enumerator runs NextEntry on its Scheduler.
//
// NextBatchAsync must call done exactly once, from any goroutine, with a result
// built by NewResult. NextBatchFinish receives that result back.
type AsyncBatchBackend[E any] interface {
	NextBatchAsync(ctx context.Context, n, priority int, done func(*Result[E]))
	NextBatchFinish(res *Result[E]) ([]E, error)
}

// AsyncCloseBackend is implemented by backends with a native asynchronous close.
// The enumerator is marked closed when done is delivered, whatever the outcome.
type AsyncCloseBackend[E any] interface {
	CloseAsync(ctx context.Context, priority int, done func(*Result[E]))
	CloseFinish(res *Result[E]) error
}

// Guard is the part of an enumerator's operation guard a backend may drive.
// It does not reference the Enumerator handle, so holding it does not keep
// the enumerator alive.
type Guard interface {
	SetPending(pending bool)
	HasPending() bool
	IsClosed() bool
}

// GuardBinder is implemented by backends that run their own asynchronous
// flows and want overlapping calls rejected meanwhile. New calls BindGuard
// once, before returning the Enumerator.
type GuardBinder interface {
	BindGuard(g Guard)
}

// Scheduler runs asynchronous operations off the caller's goroutine.
// *scheduler.Scheduler implements it.
type Scheduler interface {
	Submit(job scheduler.Job) error
}
