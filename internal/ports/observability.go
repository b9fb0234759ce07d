package ports

import "context"

// MetricsCollector records quantitative observability signals. Standard metric
// names include:
//   - Counters:
//     batchflow_scenario_runs_total{status="success|failure|cancelled"}
//     batchflow_step_executions_total{step_kind="...", status="success|failure|blocked"}
//     batchflow_step_attempts_total{step_kind="..."}
//   - Gauges:
//     batchflow_parallel_steps_in_flight
//   - Histograms:
//     batchflow_step_duration_seconds{step_kind="..."}
type MetricsCollector interface {
	IncCounter(ctx context.Context, name string, labels map[string]string)
	SetGauge(ctx context.Context, name string, value float64, labels map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, labels map[string]string)
}

const (
	MetricScenarioRuns     = "batchflow_scenario_runs_total"
	MetricStepExecutions   = "batchflow_step_executions_total"
	MetricStepAttempts     = "batchflow_step_attempts_total"
	MetricParallelInFlight = "batchflow_parallel_steps_in_flight"
	MetricStepDuration     = "batchflow_step_duration_seconds"
)
