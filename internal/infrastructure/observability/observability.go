package observability

import (
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
)

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics observability.Metrics
}

type registeredMetrics struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (m *registeredMetrics) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := m.counters[name]; ok && c != nil {
		return c
	}
	return observability.NopCounter()
}

func (m *registeredMetrics) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := m.histograms[name]; ok && h != nil {
		return h
	}
	return observability.NopHistogram()
}

// Registry is the instrument source used to populate a provider.
type Registry interface {
	Counter(name string, help string, labelKeys ...string) observability.Counter
	Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram
}

// New assembles an Observability provider. Every metric described by
// observability.CounterSpecs and observability.HistogramSpecs is created on reg;
// a nil reg yields no-op metrics.
func New(tracer observability.Tracer, logger observability.Logger, reg Registry, buckets []float64) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	var metrics observability.Metrics = observability.NopMetrics()
	if reg != nil {
		m := &registeredMetrics{
			counters:   make(map[observability.MetricKey]observability.Counter, len(observability.CounterSpecs)),
			histograms: make(map[observability.MetricKey]observability.Histogram, len(observability.HistogramSpecs)),
		}
		for _, spec := range observability.CounterSpecs {
			m.counters[spec.Key] = reg.Counter(string(spec.Key), spec.Help, spec.Labels...)
		}
		for _, spec := range observability.HistogramSpecs {
			m.histograms[spec.Key] = reg.Histogram(string(spec.Key), spec.Help, buckets, spec.Labels...)
		}
		metrics = m
	}

	return &provider{
		tracer:  tracer,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *provider) Tracer() observability.Tracer {
	return p.tracer
}

func (p *provider) Logger() observability.Logger {
	return p.logger
}

func (p *provider) Metrics() observability.Metrics {
	return p.metrics
}
