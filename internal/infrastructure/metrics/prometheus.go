package metrics

import (
	"context"
	"errors"
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alexisbeaulieu97/batchflow/internal/ports"
)

// PrometheusCollector implements ports.MetricsCollector with a fixed set of
// Prometheus vectors. Unknown metric names are ignored.
type PrometheusCollector struct {
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusCollector creates the batchflow metric vectors and registers
// them with reg. Collectors already registered by an earlier call are reused.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	c := &PrometheusCollector{
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}

	counters := []struct {
		name, help string
		labels     []string
	}{
		{ports.MetricScenarioRuns, "Total number of scenario runs by final status.", []string{"status"}},
		{ports.MetricStepExecutions, "Total number of step executions by final status.", []string{"step_kind", "status"}},
		{ports.MetricStepAttempts, "Total number of step execution attempts.", []string{"step_kind"}},
	}
	for _, def := range counters {
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: def.name, Help: def.help}, def.labels)
		registered, err := register(reg, vec)
		if err != nil {
			return nil, err
		}
		c.counters[def.name] = registered.(*prometheus.CounterVec)
	}

	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: ports.MetricParallelInFlight, Help: "Number of parallel steps currently executing."},
		nil,
	)
	registered, err := register(reg, gauge)
	if err != nil {
		return nil, err
	}
	c.gauges[ports.MetricParallelInFlight] = registered.(*prometheus.GaugeVec)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: ports.MetricStepDuration, Help: "Duration of step executions in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"step_kind"},
	)
	registered, err = register(reg, histogram)
	if err != nil {
		return nil, err
	}
	c.histograms[ports.MetricStepDuration] = registered.(*prometheus.HistogramVec)

	return c, nil
}

func register(reg prometheus.Registerer, collector prometheus.Collector) (prometheus.Collector, error) {
	if reg == nil {
		return collector, nil
	}
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector, nil
		}
		return nil, err
	}
	return collector, nil
}

// IncCounter implements ports.MetricsCollector.
func (c *PrometheusCollector) IncCounter(_ context.Context, name string, labels map[string]string) {
	if vec, ok := c.counters[name]; ok {
		if counter, err := vec.GetMetricWith(prometheus.Labels(labels)); err == nil {
			counter.Inc()
		}
	}
}

// SetGauge implements ports.MetricsCollector.
func (c *PrometheusCollector) SetGauge(_ context.Context, name string, value float64, labels map[string]string) {
	if vec, ok := c.gauges[name]; ok {
		if gauge, err := vec.GetMetricWith(prometheus.Labels(labels)); err == nil {
			gauge.Set(value)
		}
	}
}

// ObserveHistogram implements ports.MetricsCollector.
func (c *PrometheusCollector) ObserveHistogram(_ context.Context, name string, value float64, labels map[string]string) {
	if vec, ok := c.histograms[name]; ok {
		if observer, err := vec.GetMetricWith(prometheus.Labels(labels)); err == nil {
			observer.Observe(value)
		}
	}
}

// Names lists the metric names this collector understands, sorted.
func (c *PrometheusCollector) Names() []string {
	names := make([]string, 0, len(c.counters)+len(c.gauges)+len(c.histograms))
	for name := range c.counters {
		names = append(names, name)
	}
	for name := range c.gauges {
		names = append(names, name)
	}
	for name := range c.histograms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var _ ports.MetricsCollector = (*PrometheusCollector)(nil)
