package enumerator

import (
	"context"
	"iter"
)

// NextBatch is NextBatchAsync followed by NextBatchFinish, waiting for the
// completion. It must not be called from a callback running on the
// enumerator's own loop, which would deadlock.
func (e *Enumerator[E]) NextBatch(ctx context.Context, n, priority int) ([]E, error) {
	type outcome struct {
		entries []E
		err     error
	}
	ch := make(chan outcome, 1)
	e.NextBatchAsync(ctx, n, priority, func(e *Enumerator[E], res *Result[E]) {
		entries, err := e.NextBatchFinish(res)
		ch <- outcome{entries: entries, err: err}
	})
	o := <-ch
	return o.entries, o.err
}

// CloseWait is CloseAsync followed by CloseFinish, waiting for the completion.
// The same loop restriction as NextBatch applies.
func (e *Enumerator[E]) CloseWait(ctx context.Context, priority int) error {
	ch := make(chan error, 1)
	e.CloseAsync(ctx, priority, func(e *Enumerator[E], res *Result[E]) {
		ch <- e.CloseFinish(res)
	})
	return <-ch
}

// All ranges over the remaining entries with synchronous Next calls. Iteration
// stops after the first error, which is yielded with a zero entry.
// All does not close the enumerator.
func (e *Enumerator[E]) All(ctx context.Context) iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		for {
			entry, ok, err := e.Next(ctx)
			if err != nil {
				var zero E
				yield(zero, err)
				return
			}
			if !ok || !yield(entry, nil) {
				return
			}
		}
	}
}
