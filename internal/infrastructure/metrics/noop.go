package metrics

import (
	"context"

	"github.com/alexisbeaulieu97/batchflow/internal/ports"
)

// NoOpCollector discards all metrics.
type NoOpCollector struct{}

// IncCounter implements ports.MetricsCollector.
func (NoOpCollector) IncCounter(context.Context, string, map[string]string) {}

// SetGauge implements ports.MetricsCollector.
func (NoOpCollector) SetGauge(context.Context, string, float64, map[string]string) {}

// ObserveHistogram implements ports.MetricsCollector.
func (NoOpCollector) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// NewNoOpCollector returns a collector that records nothing.
func NewNoOpCollector() ports.MetricsCollector {
	return NoOpCollector{}
}
