package enumerator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ygrebnov/enumerator/loop"
	"github.com/ygrebnov/enumerator/scheduler"
)

// env is a private loop and scheduler per test, so that tests never share the
// process-wide defaults.
type env struct {
	loop  *trackingLoop
	sched *scheduler.Scheduler
}

func newEnv(t *testing.T, schedOpts ...scheduler.Option) *env {
	t.Helper()
	s, err := scheduler.New(context.Background(), schedOpts...)
	require.NoError(t, err)
	l := &trackingLoop{l: loop.New()}
	// Scheduler first: its Close may still post completions to the loop.
	t.Cleanup(l.l.Close)
	t.Cleanup(s.Close)
	return &env{loop: l, sched: s}
}

func (v *env) options(extra ...Option) []Option {
	return append([]Option{WithScheduler(v.sched), WithLoop(v.loop)}, extra...)
}

func newEnumerator[E any](t *testing.T, v *env, b Backend[E], extra ...Option) *Enumerator[E] {
	t.Helper()
	e, err := New[E](b, v.options(extra...)...)
	require.NoError(t, err)
	return e
}

// trackingLoop reports whether the current code runs inside one of its callbacks.
type trackingLoop struct {
	l      *loop.Loop
	active atomic.Bool
}

func (tl *trackingLoop) Invoke(fn func()) {
	tl.l.Invoke(func() {
		tl.active.Store(true)
		defer tl.active.Store(false)
		fn()
	})
}

func (tl *trackingLoop) inLoop() bool { return tl.active.Load() }

// outcome is what a batch callback observed.
type outcome[E any] struct {
	entries []E
	err     error
	inLoop  bool
	res     *Result[E]
}

// batchAsync starts NextBatchAsync and returns a channel with its outcome.
func batchAsync[E any](v *env, e *Enumerator[E], ctx context.Context, n int) <-chan outcome[E] {
	ch := make(chan outcome[E], 1)
	e.NextBatchAsync(ctx, n, 0, func(e *Enumerator[E], res *Result[E]) {
		entries, err := e.NextBatchFinish(res)
		ch <- outcome[E]{entries: entries, err: err, inLoop: v.loop.inLoop(), res: res}
	})
	return ch
}

func closeAsync[E any](v *env, e *Enumerator[E], ctx context.Context) <-chan outcome[E] {
	ch := make(chan outcome[E], 1)
	e.CloseAsync(ctx, 0, func(e *Enumerator[E], res *Result[E]) {
		ch <- outcome[E]{err: e.CloseFinish(res), inLoop: v.loop.inLoop(), res: res}
	})
	return ch
}

func await[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("operation did not complete")
		var zero T
		return zero
	}
}
