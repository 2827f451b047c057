package enumtest

import (
	"context"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ygrebnov/enumerator/metrics"
)

// Metrics is an in-memory OpenTelemetry pipeline for asserting on recorded values.
type Metrics struct {
	Provider *metrics.OTelProvider
	reader   *sdkmetric.ManualReader
}

// NewMetrics wires an OTelProvider to a manual reader.
func NewMetrics() *Metrics {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return &Metrics{Provider: metrics.NewOTelProvider(mp), reader: reader}
}

// Int64 returns the current value of the named counter or up/down counter,
// summed over data points. Missing instruments read as zero.
func (m *Metrics) Int64(name string) int64 {
	var total int64
	for _, agg := range m.collect(name) {
		if sum, ok := agg.(metricdata.Sum[int64]); ok {
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

// HistogramCount returns how many measurements the named histogram received.
func (m *Metrics) HistogramCount(name string) uint64 {
	var total uint64
	for _, agg := range m.collect(name) {
		if h, ok := agg.(metricdata.Histogram[float64]); ok {
			for _, dp := range h.DataPoints {
				total += dp.Count
			}
		}
	}
	return total
}

func (m *Metrics) collect(name string) []metricdata.Aggregation {
	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(context.Background(), &rm); err != nil {
		return nil
	}
	var out []metricdata.Aggregation
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name == name {
				out = append(out, md.Data)
			}
		}
	}
	return out
}
