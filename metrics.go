package enumerator

import "github.com/ygrebnov/enumerator/metrics"

type instruments struct {
	started   metrics.Counter
	rejected  metrics.Counter
	entries   metrics.Counter
	deferred  metrics.Counter
	released  metrics.Counter
	pending   metrics.UpDownCounter
	batchTime metrics.Histogram
}

func newInstruments(p metrics.Provider) instruments {
	return instruments{
		started: p.Counter("enumerator_operations_started_total",
			metrics.WithDescription("Operations admitted by the guard"), metrics.WithUnit("1")),
		rejected: p.Counter("enumerator_operations_rejected_total",
			metrics.WithDescription("Operations refused by the guard (closed, pending, deferred error)"), metrics.WithUnit("1")),
		entries: p.Counter("enumerator_entries_total",
			metrics.WithDescription("Entries handed to callers"), metrics.WithUnit("1")),
		deferred: p.Counter("enumerator_deferred_errors_total",
			metrics.WithDescription("Batch errors postponed to the next operation"), metrics.WithUnit("1")),
		released: p.Counter("enumerator_closed_on_release_total",
			metrics.WithDescription("Enumerators closed by the garbage collector cleanup"), metrics.WithUnit("1")),
		pending: p.UpDownCounter("enumerator_pending_operations",
			metrics.WithDescription("Operations currently in flight"), metrics.WithUnit("1")),
		batchTime: p.Histogram("enumerator_batch_duration_seconds",
			metrics.WithDescription("Time from batch request to completion"), metrics.WithUnit("s")),
	}
}
