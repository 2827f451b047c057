// Package enumerator provides a guarded, cancellable enumeration abstraction
// with both a blocking and an asynchronous API over one backend.
//
// A Backend supplies two blocking primitives, NextEntry and CloseBackend.
// Enumerator adds:
//   - a guard: at most one operation in flight; overlapping calls fail with
//     ErrPending, calls after close fail with ErrClosed;
//   - asynchronous NextBatchAsync/CloseAsync, run on a Scheduler unless the
//     backend implements AsyncBatchBackend/AsyncCloseBackend itself;
//   - completions delivered on a loop.Invoker (the caller's context), never on
//     a worker goroutine;
//   - error deferral: a batch that fails after producing entries returns the
//     entries, and the error is raised by the next operation. Cancellations
//     after a partial batch are dropped;
//   - close on release: an unreachable, unclosed enumerator closes its backend.
//
// Defaults
//   - Scheduler: scheduler.Default(), a dynamic pool
//   - Loop: loop.Default()
//   - Logger: zerolog.Nop()
//   - Metrics: metrics.NoopProvider
//
// Cancellation
// Operations take a context.Context. A cancelled operation fails with an error
// matching both ErrCancelled and the context error. Close and CloseAsync always
// reach the backend: CloseAsync detaches cancellation before running.
package enumerator
