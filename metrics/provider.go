// Package metrics defines the small instrument surface used by enumerators and
// the scheduler. Adapters map it onto a concrete backend; NoopProvider is the default.
package metrics

// Provider constructs named instruments. Implementations must be safe for
// concurrent use and should return the same instrument for the same name.
type Provider interface {
	Counter(name string, opts ...InstrumentOption) Counter
	UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter
	Histogram(name string, opts ...InstrumentOption) Histogram
}

// Counter records monotonic counts (operations started, entries fetched).
type Counter interface {
	Add(n int64)
}

// UpDownCounter records values that move both ways (pending operations, queue depth).
type UpDownCounter interface {
	Add(n int64)
}

// Histogram records float64 measurements, durations in seconds by convention.
type Histogram interface {
	Record(v float64)
}

// InstrumentConfig carries advisory instrument metadata.
type InstrumentConfig struct {
	Description string
	Unit        string
}

// InstrumentOption mutates InstrumentConfig.
type InstrumentOption func(*InstrumentConfig)

// WithDescription sets the instrument description.
func WithDescription(desc string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Description = desc }
}

// WithUnit sets the instrument unit ("1", "s").
func WithUnit(unit string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Unit = unit }
}

func applyOptions(opts []InstrumentOption) InstrumentConfig {
	var cfg InstrumentConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}
