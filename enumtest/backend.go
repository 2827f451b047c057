// Package enumtest provides test doubles for code built on enumerators.
//
// Backend is a scripted in-memory backend: it yields a fixed slice of entries,
// can fail once at a chosen index, can block until released and counts every
// call it receives.
package enumtest

import (
	"context"
	"sync"
	"sync/atomic"
)

// Backend is a scripted backend over a slice of entries. Safe for concurrent use.
type Backend[E any] struct {
	mu       sync.Mutex
	entries  []E
	pos      int
	failAt   int
	failErr  error
	closeErr error
	gate     chan struct{}
	onNext   func(index int)

	closeCtxErr error

	nextCalls  atomic.Int32
	closeCalls atomic.Int32
}

// NewBackend returns a backend that yields entries in order, then end of sequence.
func NewBackend[E any](entries ...E) *Backend[E] {
	return &Backend[E]{entries: entries, failAt: -1}
}

// FailAt makes the NextEntry call that would produce entries[index] return err
// instead. The failure fires once; the following call yields entries[index].
func (b *Backend[E]) FailAt(index int, err error) *Backend[E] {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failAt, b.failErr = index, err
	return b
}

// FailClose makes CloseBackend return err.
func (b *Backend[E]) FailClose(err error) *Backend[E] {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeErr = err
	return b
}

// OnNext registers fn to run at the start of every NextEntry call with the
// index of the entry about to be produced.
func (b *Backend[E]) OnNext(fn func(index int)) *Backend[E] {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onNext = fn
	return b
}

// Block makes NextEntry wait until release is called or its context is done.
func (b *Backend[E]) Block() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.gate = gate
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.gate == gate {
				b.gate = nil
			}
			b.mu.Unlock()
			close(gate)
		})
	}
}

// NextEntry yields the next scripted entry.
func (b *Backend[E]) NextEntry(ctx context.Context) (E, bool, error) {
	var zero E
	b.nextCalls.Add(1)

	b.mu.Lock()
	gate, onNext, index := b.gate, b.onNext, b.pos
	b.mu.Unlock()

	if onNext != nil {
		onNext(index)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return zero, false, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pos == b.failAt {
		err := b.failErr
		b.failAt, b.failErr = -1, nil
		return zero, false, err
	}
	if b.pos >= len(b.entries) {
		return zero, false, nil
	}
	e := b.entries[b.pos]
	b.pos++
	return e, true, nil
}

// CloseBackend records the call and returns the scripted close error.
func (b *Backend[E]) CloseBackend(ctx context.Context) error {
	b.closeCalls.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeCtxErr = ctx.Err()
	return b.closeErr
}

// NextCalls reports how many times NextEntry was called.
func (b *Backend[E]) NextCalls() int { return int(b.nextCalls.Load()) }

// CloseCalls reports how many times CloseBackend was called.
func (b *Backend[E]) CloseCalls() int { return int(b.closeCalls.Load()) }

// CloseContextErr returns ctx.Err() as seen by the last CloseBackend call.
func (b *Backend[E]) CloseContextErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeCtxErr
}
