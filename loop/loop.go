// Package loop provides the caller-side context on which asynchronous
// completions are delivered.
//
// A Loop runs posted callbacks one at a time, in the order they were posted,
// on a single goroutine it owns. Code that only ever mutates state from inside
// loop callbacks needs no locking against other callbacks of the same Loop.
package loop

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Invoker runs fn on the context it represents. Implementations must not run
// fn on the calling goroutine unless they document otherwise.
type Invoker interface {
	Invoke(fn func())
}

// Loop is a serial callback executor.
type Loop struct {
	logger zerolog.Logger

	mu     sync.Mutex
	queue  []func()
	closed bool

	wake chan struct{}
	done chan struct{}

	closeOnce sync.Once
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used to report recovered callback panics.
func WithLogger(l zerolog.Logger) Option {
	return func(lp *Loop) { lp.logger = l.With().Str("component", "loop").Logger() }
}

// New starts a Loop. Call Close to stop it.
func New(opts ...Option) *Loop {
	l := &Loop{
		logger: zerolog.Nop(),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	go l.run()
	return l
}

var (
	defaultOnce sync.Once
	defaultLoop *Loop
)

// Default returns the process-wide Loop. It is started on first use and never closed.
func Default() *Loop {
	defaultOnce.Do(func() { defaultLoop = New() })
	return defaultLoop
}

// Invoke queues fn. After Close, fn runs synchronously on the calling
// goroutine so that a completion is never dropped.
func (l *Loop) Invoke(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.call(fn)
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Close stops accepting callbacks, waits for the queued ones to run and stops
// the loop goroutine. Safe to call more than once.
// Close must not be called from inside a callback of the same Loop.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		select {
		case l.wake <- struct{}{}:
		default:
		}
		<-l.done
	})
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		closed := l.closed
		l.mu.Unlock()

		for i, fn := range batch {
			l.call(fn)
			// Drop the reference so finished callbacks do not pin what they captured.
			batch[i] = nil
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-l.wake
	}
}

// call runs fn and keeps the loop alive if it panics.
func (l *Loop) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Err(fmt.Errorf("%v", r)).Msg("loop callback panicked")
		}
	}()
	fn()
}
