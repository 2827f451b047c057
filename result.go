package enumerator

import "github.com/google/uuid"

// Tag names the operation implementation that produced a Result.
// Native backends may use their own tags.
type Tag string

const (
	// TagNextBatch marks results of the scheduler-backed batch fetch.
	TagNextBatch Tag = "enumerator.next-batch"
	// TagClose marks results of the scheduler-backed close.
	TagClose Tag = "enumerator.close"

	tagEmptyBatch Tag = "enumerator.empty-batch"
	tagGuard      Tag = "enumerator.guard"
)

// Result is the outcome of one asynchronous operation. It is handed to the
// operation's Callback and must be passed back to the matching Finish method.
type Result[E any] struct {
	id      uuid.UUID
	source  any
	tag     Tag
	entries []E
	err     error

	// deferred is moved into the enumerator when the result is delivered.
	deferred error
}

// NewResult builds a Result. Native backends use it to complete their operations.
func NewResult[E any](tag Tag, entries []E, err error) *Result[E] {
	return &Result[E]{id: uuid.New(), tag: tag, entries: entries, err: err}
}

// WithDeferred records err to be raised by the enumerator's next operation
// instead of by this one. Native batch backends use it to keep partial batches.
func (r *Result[E]) WithDeferred(err error) *Result[E] {
	r.deferred = err
	return r
}

// ID correlates the result with log lines of the operation that produced it.
func (r *Result[E]) ID() uuid.UUID { return r.id }

// Tag returns the producing operation's tag.
func (r *Result[E]) Tag() Tag { return r.tag }

// Entries returns the entries carried by the result.
func (r *Result[E]) Entries() []E { return r.entries }

// Err returns the error carried by the result.
func (r *Result[E]) Err() error { return r.err }
