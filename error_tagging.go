package enumerator

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// DeferredError exposes where a deferred batch error came from: the batch
// operation that hit it and the index of the entry it failed on.
type DeferredError interface {
	error
	Unwrap() error
	OperationID() uuid.UUID
	EntryIndex() int
}

type deferredError struct {
	err   error
	id    uuid.UUID
	index int
}

func newDeferredError(err error, id uuid.UUID, index int) error {
	if err == nil {
		return nil
	}
	var de DeferredError
	if errors.As(err, &de) {
		return err
	}
	return &deferredError{err: err, id: id, index: index}
}

func (e *deferredError) Error() string { return e.err.Error() }
func (e *deferredError) Unwrap() error { return e.err }

func (e *deferredError) OperationID() uuid.UUID { return e.id }
func (e *deferredError) EntryIndex() int        { return e.index }

func (e *deferredError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "deferred(op=%s,index=%d): %+v", e.id, e.index, e.err)
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// ExtractOperationID returns the ID of the batch operation a deferred error was
// recorded by, if err is one.
func ExtractOperationID(err error) (uuid.UUID, bool) {
	var de DeferredError
	if errors.As(err, &de) {
		return de.OperationID(), true
	}
	return uuid.Nil, false
}

// ExtractEntryIndex returns the batch-relative index of the entry a deferred
// error was raised for, if err is one.
func ExtractEntryIndex(err error) (int, bool) {
	var de DeferredError
	if errors.As(err, &de) {
		return de.EntryIndex(), true
	}
	return 0, false
}
