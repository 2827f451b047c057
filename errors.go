package enumerator

import (
	"context"
	"errors"
	"fmt"
)

const Namespace = "enumerator"

var (
	ErrClosed         = errors.New(Namespace + ": enumerator is closed")
	ErrPending        = errors.New(Namespace + ": enumerator has outstanding operation")
	ErrCancelled      = errors.New(Namespace + ": operation cancelled")
	ErrInvalidCount   = errors.New(Namespace + ": batch size must not be negative")
	ErrResultMismatch = errors.New(Namespace + ": result does not belong to this operation")
	ErrInvalidConfig  = errors.New(Namespace + ": invalid configuration")
)

// IsCancelled reports whether err is a cancellation, either ErrCancelled or a
// context cancellation/deadline.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// cancelled wraps a context error so it matches both ErrCancelled and the cause.
func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

// normalize turns a bare context error returned by a backend into a cancellation error.
func normalize(err error) error {
	if err == nil || errors.Is(err, ErrCancelled) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return cancelled(err)
	}
	return err
}
