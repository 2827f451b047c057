package enumerator

import (
	"context"
	"errors"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/enumerator/loop"
)

// Callback receives the result of an asynchronous operation. It always runs on
// the enumerator's loop, never on a scheduler worker.
type Callback[E any] func(e *Enumerator[E], res *Result[E])

// Enumerator coordinates sequential retrieval of entries from a Backend.
//
// At most one operation, synchronous or asynchronous, may be in flight at a
// time; an overlapping call fails with ErrPending. Enumerator is meant for one
// logical caller: the guard detects misuse, it does not serialise callers.
//
// An Enumerator that becomes unreachable without being closed closes its
// backend on its own. An in-flight asynchronous operation keeps it reachable.
type Enumerator[E any] struct {
	c *core[E]
}

// core holds everything the GC cleanup needs. It must never point back at the
// Enumerator handle, or the handle could not be collected.
type core[E any] struct {
	backend Backend[E]
	batcher AsyncBatchBackend[E]
	closer  AsyncCloseBackend[E]

	sched   Scheduler
	invoker loop.Invoker
	logger  zerolog.Logger
	ins     instruments

	guard guard[E]
}

// New wraps backend in an open Enumerator.
func New[E any](backend Backend[E], opts ...Option) (*Enumerator[E], error) {
	if backend == nil {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("", "backend must not be nil"))
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	cfg.resolveDefaults()

	lctx := cfg.logger.With().Str("component", "enumerator")
	if cfg.name != "" {
		lctx = lctx.Str("enumerator", cfg.name)
	}

	c := &core[E]{
		backend: backend,
		sched:   cfg.scheduler,
		invoker: cfg.invoker,
		logger:  lctx.Logger(),
		ins:     newInstruments(cfg.metrics),
	}
	if b, ok := backend.(AsyncBatchBackend[E]); ok {
		c.batcher = b
	}
	if b, ok := backend.(AsyncCloseBackend[E]); ok {
		c.closer = b
	}

	if gb, ok := backend.(GuardBinder); ok {
		gb.BindGuard(c)
	}

	e := &Enumerator[E]{c: c}
	runtime.AddCleanup(e, (*core[E]).release, c)
	return e, nil
}

// Next returns the next entry. ok is false, with a nil error, at the end of
// the sequence, and stays false on further calls.
func (e *Enumerator[E]) Next(ctx context.Context) (entry E, ok bool, err error) {
	c := e.c
	ctx = orBackground(ctx)

	if err = c.enter("next"); err != nil {
		return entry, false, err
	}
	defer c.leave(false)

	if cerr := ctx.Err(); cerr != nil {
		return entry, false, cancelled(cerr)
	}

	entry, ok, err = c.backend.NextEntry(ctx)
	if err != nil {
		var zero E
		return zero, false, normalize(err)
	}
	if ok {
		c.ins.entries.Add(1)
	}
	return entry, ok, nil
}

// Close releases the backend. Closing a closed enumerator is a no-op.
// The enumerator is closed afterwards even when the backend reports an error;
// that error is returned once.
func (e *Enumerator[E]) Close(ctx context.Context) error {
	c := e.c
	ctx = orBackground(ctx)

	if c.guard.closed.Load() {
		return nil
	}
	if err := c.enter("close"); err != nil {
		if errors.Is(err, ErrClosed) {
			return nil
		}
		return err
	}
	defer c.leave(true)

	return normalize(c.backend.CloseBackend(ctx))
}

// IsClosed reports whether the enumerator has been closed.
func (e *Enumerator[E]) IsClosed() bool { return e.c.IsClosed() }

// HasPending reports whether an operation is in flight.
func (e *Enumerator[E]) HasPending() bool { return e.c.HasPending() }

// SetPending raises or clears a pending flag of its own. It is meant for flows
// driven outside NextBatchAsync/CloseAsync that still want overlapping calls
// rejected. Backends reach it through GuardBinder.
//
// SetPending(true) while an operation is in flight does nothing, and
// SetPending(false) only clears a flag raised by SetPending: an admitted
// operation keeps its pending state until it completes.
func (e *Enumerator[E]) SetPending(pending bool) { e.c.SetPending(pending) }

var _ Guard = (*core[struct{}])(nil)

func (c *core[E]) IsClosed() bool { return c.guard.closed.Load() }

func (c *core[E]) HasPending() bool { return c.guard.pending.Load() }

func (c *core[E]) SetPending(pending bool) {
	delta := c.guard.force(pending)
	if delta == 0 && !pending && c.guard.pending.Load() {
		c.logger.Debug().Msg("SetPending(false) ignored: an operation is in flight")
		return
	}
	if delta != 0 {
		c.ins.pending.Add(int64(delta))
	}
}

// enter runs the guard for op and records the outcome.
func (c *core[E]) enter(op string) error {
	err := c.guard.enter()
	if err != nil {
		c.ins.rejected.Add(1)
		ev := c.logger.Debug().Str("op", op).Err(err)
		if errors.Is(err, ErrClosed) || errors.Is(err, ErrPending) {
			ev.Msg("operation rejected")
		} else {
			ev.Msg("surfacing deferred error")
		}
		return err
	}
	c.ins.started.Add(1)
	c.ins.pending.Add(1)
	return nil
}

func (c *core[E]) leave(closing bool) {
	c.guard.leave(closing)
	c.ins.pending.Add(-1)
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
