package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/ygrebnov/enumerator"

// OTelProvider adapts an OpenTelemetry MeterProvider to Provider.
// Instruments are created lazily and cached by name. An instrument that the SDK
// refuses to create degrades to a no-op instead of failing the caller.
type OTelProvider struct {
	meter metric.Meter

	mu         sync.Mutex
	counters   map[string]Counter
	updowns    map[string]UpDownCounter
	histograms map[string]Histogram
}

// NewOTelProvider builds a Provider on top of mp.
func NewOTelProvider(mp metric.MeterProvider) *OTelProvider {
	return &OTelProvider{
		meter:      mp.Meter(instrumentationName),
		counters:   make(map[string]Counter),
		updowns:    make(map[string]UpDownCounter),
		histograms: make(map[string]Histogram),
	}
}

func (p *OTelProvider) Counter(name string, opts ...InstrumentOption) Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return c
	}
	cfg := applyOptions(opts)
	var c Counter = noop{}
	if inst, err := p.meter.Int64Counter(
		name,
		metric.WithDescription(cfg.Description),
		metric.WithUnit(cfg.Unit),
	); err == nil {
		c = otelCounter{inst: inst}
	}
	p.counters[name] = c
	return c
}

func (p *OTelProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.updowns[name]; ok {
		return u
	}
	cfg := applyOptions(opts)
	var u UpDownCounter = noop{}
	if inst, err := p.meter.Int64UpDownCounter(
		name,
		metric.WithDescription(cfg.Description),
		metric.WithUnit(cfg.Unit),
	); err == nil {
		u = otelUpDown{inst: inst}
	}
	p.updowns[name] = u
	return u
}

func (p *OTelProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.histograms[name]; ok {
		return h
	}
	cfg := applyOptions(opts)
	var h Histogram = noop{}
	if inst, err := p.meter.Float64Histogram(
		name,
		metric.WithDescription(cfg.Description),
		metric.WithUnit(cfg.Unit),
	); err == nil {
		h = otelHistogram{inst: inst}
	}
	p.histograms[name] = h
	return h
}

// Measurements are recorded without a request context; instruments here are
// process-level and carry no per-call attributes.

type otelCounter struct{ inst metric.Int64Counter }

func (c otelCounter) Add(n int64) { c.inst.Add(context.Background(), n) }

type otelUpDown struct{ inst metric.Int64UpDownCounter }

func (u otelUpDown) Add(n int64) { u.inst.Add(context.Background(), n) }

type otelHistogram struct{ inst metric.Float64Histogram }

func (h otelHistogram) Record(v float64) { h.inst.Record(context.Background(), v) }
