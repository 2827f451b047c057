package enumerator

import (
	"context"

	"github.com/ygrebnov/enumerator/scheduler"
)

// submit runs work on the scheduler and completes res on the loop.
//
// fallback, when set, runs on the loop if the scheduler never ran work
// (rejected at Submit or dropped by scheduler Close); close uses it so the
// backend is released even then. after runs on the loop before completion.
func (c *core[E]) submit(
	ctx context.Context,
	e *Enumerator[E],
	res *Result[E],
	closing bool,
	priority int,
	work func(context.Context),
	fallback func(context.Context),
	after func(),
) {
	ran := false
	finish := func(err error) {
		if !ran && fallback != nil {
			fallback(context.WithoutCancel(ctx))
		} else if err != nil && res.err == nil {
			res.err = err
		}
		if after != nil {
			after()
		}
		c.complete(e, res, closing)
	}

	err := c.sched.Submit(scheduler.Job{
		Priority: priority,
		Ctx:      ctx,
		Run: func(ctx context.Context) error {
			ran = true
			work(ctx)
			return nil
		},
		Done:   finish,
		Notify: c.invoker,
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("op_id", res.id.String()).Msg("scheduler rejected operation")
		c.invoker.Invoke(func() { finish(err) })
	}
}

// fetchBatch is the scheduler-side body of NextBatchAsync.
//
// An error on the first entry is the batch's error. An error after at least
// one entry ends the batch early and is returned as deferred, except a
// cancellation, which is dropped: the caller asked for it and already has a
// usable partial batch.
func (c *core[E]) fetchBatch(ctx context.Context, n int) (entries []E, err, deferred error) {
	entries = make([]E, 0, min(n, 256))
	for i := 0; i < n; i++ {
		var (
			entry E
			ok    bool
			ferr  error
		)
		if cerr := ctx.Err(); cerr != nil {
			ferr = cancelled(cerr)
		} else {
			entry, ok, ferr = c.backend.NextEntry(ctx)
			ferr = normalize(ferr)
		}

		if ferr != nil {
			switch {
			case i == 0:
				return entries, ferr, nil
			case IsCancelled(ferr):
				c.logger.Debug().Int("fetched", i).Msg("cancellation after partial batch dropped")
			default:
				deferred = ferr
			}
			break
		}
		if !ok {
			break
		}
		entries = append(entries, entry)
	}
	return entries, nil, deferred
}

// closeBackend is the scheduler-side body of CloseAsync.
func (c *core[E]) closeBackend(ctx context.Context) error {
	err := normalize(c.backend.CloseBackend(ctx))
	if err != nil {
		c.logger.Debug().Err(err).Msg("backend close failed")
	}
	return err
}
