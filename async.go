package enumerator

import (
	"context"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/ygrebnov/errorc"
)

// NextBatchAsync requests up to n entries. cb runs on the enumerator's loop;
// pass the result to NextBatchFinish.
//
// n == 0 completes with an empty batch without consulting the guard or the
// backend. Guard failures and a previously deferred error are delivered
// through cb as well.
func (e *Enumerator[E]) NextBatchAsync(ctx context.Context, n, priority int, cb Callback[E]) {
	c := e.c
	ctx = orBackground(ctx)

	if n < 0 {
		err := errorc.With(ErrInvalidCount, errorc.String("count", strconv.Itoa(n)))
		c.reportInIdle(e, cb, NewResult[E](tagGuard, nil, err))
		return
	}
	if n == 0 {
		c.reportInIdle(e, cb, NewResult[E](tagEmptyBatch, nil, nil))
		return
	}
	if err := c.enter("next_batch"); err != nil {
		c.reportInIdle(e, cb, NewResult[E](tagGuard, nil, err))
		return
	}
	c.guard.setOutstanding(cb)

	if c.batcher != nil {
		c.batcher.NextBatchAsync(ctx, n, priority, c.nativeDone(e, false))
		return
	}
	c.submitBatch(ctx, e, n, priority)
}

// NextBatchFinish returns the entries of a NextBatchAsync result, in fetch
// order. It may return fewer than requested; an empty batch with a nil error
// means the end of the sequence.
func (e *Enumerator[E]) NextBatchFinish(res *Result[E]) ([]E, error) {
	c := e.c
	if err := c.validate(res); err != nil {
		return nil, err
	}
	if res.tag == TagClose {
		return nil, c.mismatch(res, "next_batch")
	}
	if res.err != nil {
		return nil, res.err
	}
	if res.tag == tagEmptyBatch {
		return nil, nil
	}
	if c.batcher != nil {
		return c.batcher.NextBatchFinish(res)
	}
	if res.tag != TagNextBatch {
		return nil, c.mismatch(res, "next_batch")
	}
	return res.entries, nil
}

// CloseAsync closes the enumerator without blocking. The backend close runs
// even if ctx is already cancelled. cb runs on the enumerator's loop; pass the
// result to CloseFinish. Unlike Close, closing a closed enumerator reports ErrClosed.
func (e *Enumerator[E]) CloseAsync(ctx context.Context, priority int, cb Callback[E]) {
	c := e.c
	ctx = orBackground(ctx)

	if err := c.enter("close"); err != nil {
		c.reportInIdle(e, cb, NewResult[E](tagGuard, nil, err))
		return
	}
	c.guard.setOutstanding(cb)

	if c.closer != nil {
		c.closer.CloseAsync(ctx, priority, c.nativeDone(e, true))
		return
	}
	c.submitClose(ctx, e, priority)
}

// CloseFinish reports the outcome of a CloseAsync call.
func (e *Enumerator[E]) CloseFinish(res *Result[E]) error {
	c := e.c
	if err := c.validate(res); err != nil {
		return err
	}
	if res.tag == TagNextBatch || res.tag == tagEmptyBatch {
		return c.mismatch(res, "close")
	}
	if res.err != nil {
		return res.err
	}
	if c.closer != nil {
		return c.closer.CloseFinish(res)
	}
	if res.tag != TagClose {
		return c.mismatch(res, "close")
	}
	return nil
}

// submitBatch hands the batch to the scheduler. The job closure holds e, which
// keeps the handle reachable until the completion has run.
func (c *core[E]) submitBatch(ctx context.Context, e *Enumerator[E], n, priority int) {
	res := NewResult[E](TagNextBatch, nil, nil)
	start := time.Now()

	c.logger.Debug().Str("op_id", res.id.String()).Int("count", n).Int("priority", priority).
		Msg("batch scheduled")

	c.submit(ctx, e, res, false, priority, func(ctx context.Context) {
		res.entries, res.err, res.deferred = c.fetchBatch(ctx, n)
	}, nil, func() {
		c.ins.batchTime.Record(time.Since(start).Seconds())
	})
}

// submitClose hands the close to the scheduler with cancellation detached.
func (c *core[E]) submitClose(ctx context.Context, e *Enumerator[E], priority int) {
	res := NewResult[E](TagClose, nil, nil)

	c.logger.Debug().Str("op_id", res.id.String()).Int("priority", priority).Msg("close scheduled")

	release := func(ctx context.Context) { res.err = c.closeBackend(ctx) }
	c.submit(context.WithoutCancel(ctx), e, res, true, priority, release, release, nil)
}

// complete finishes an asynchronous operation on the loop: it applies a
// deferred error, clears pending (and sets closed for a close), runs the
// caller's callback and then drops the pin on e.
func (c *core[E]) complete(e *Enumerator[E], res *Result[E], closing bool) {
	res.source = c
	if res.deferred != nil {
		c.guard.setDeferred(newDeferredError(res.deferred, res.id, len(res.entries)))
		c.ins.deferred.Add(1)
		c.logger.Debug().Str("op_id", res.id.String()).Err(res.deferred).Msg("batch error deferred")
		res.deferred = nil
	}
	c.ins.entries.Add(int64(len(res.entries)))

	cb := c.guard.takeOutstanding()
	c.leave(closing)
	if cb != nil {
		cb(e, res)
	}
	runtime.KeepAlive(e)
}

// nativeDone wraps the completion handed to a native async backend. Only the
// first call counts; the completion itself always runs on the loop.
func (c *core[E]) nativeDone(e *Enumerator[E], closing bool) func(*Result[E]) {
	var once sync.Once
	return func(res *Result[E]) {
		once.Do(func() {
			if res == nil {
				res = NewResult[E]("", nil, errorc.With(ErrResultMismatch, errorc.String("", "backend completed with a nil result")))
			}
			c.invoker.Invoke(func() { c.complete(e, res, closing) })
		})
	}
}

// reportInIdle delivers a result that involved no backend work. It does not
// touch pending: the operation it answers was never admitted.
func (c *core[E]) reportInIdle(e *Enumerator[E], cb Callback[E], res *Result[E]) {
	res.source = c
	c.invoker.Invoke(func() {
		if cb != nil {
			cb(e, res)
		}
	})
}

// validate checks that res was delivered by this enumerator.
func (c *core[E]) validate(res *Result[E]) error {
	if res == nil {
		return errorc.With(ErrResultMismatch, errorc.String("", "nil result"))
	}
	if res.source != c {
		return c.mismatch(res, "foreign")
	}
	return nil
}

func (c *core[E]) mismatch(res *Result[E], want string) error {
	return errorc.With(ErrResultMismatch, errorc.String(want, string(res.tag)))
}
