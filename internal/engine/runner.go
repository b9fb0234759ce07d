package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
	"github.com/alexisbeaulieu97/batchflow/internal/infrastructure/events"
	"github.com/alexisbeaulieu97/batchflow/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/batchflow/internal/infrastructure/metrics"
	"github.com/alexisbeaulieu97/batchflow/internal/ports"
	batcherrors "github.com/alexisbeaulieu97/batchflow/pkg/errors"
)

const (
	// ReasonUpstreamFailed is reported for steps skipped because a dependency failed.
	ReasonUpstreamFailed = "upstream dependency failed"
	// ReasonCancelled is reported for steps interrupted by cancellation.
	ReasonCancelled = "cancelled"
	// ReasonTimeout is reported when every attempt of a step timed out.
	ReasonTimeout = "timeout"

	defaultIdlePoll = 100 * time.Millisecond
)

// Runner executes scenarios. A Runner holds no per-run state and may run
// several scenarios concurrently.
type Runner struct {
	logger      ports.Logger
	events      ports.EventPublisher
	metrics     ports.MetricsCollector
	bridge      *ConfirmBridge
	maxParallel int
	backoff     func(attempt int) time.Duration
	idlePoll    time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the structured logger.
func WithLogger(logger ports.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEvents sets the publisher that receives the run's event stream.
func WithEvents(publisher ports.EventPublisher) Option {
	return func(r *Runner) {
		if publisher != nil {
			r.events = publisher
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector ports.MetricsCollector) Option {
	return func(r *Runner) {
		if collector != nil {
			r.metrics = collector
		}
	}
}

// WithConfirmBridge attaches a responder for confirmation gates. Without a
// bridge every gate resolves to its configured default answer.
func WithConfirmBridge(bridge *ConfirmBridge) Option {
	return func(r *Runner) {
		r.bridge = bridge
	}
}

// WithMaxParallel caps how many parallel steps one scheduler keeps in
// flight. Zero means unbounded.
func WithMaxParallel(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.maxParallel = n
		}
	}
}

// WithBackoff replaces the retry backoff schedule.
func WithBackoff(backoff func(attempt int) time.Duration) Option {
	return func(r *Runner) {
		if backoff != nil {
			r.backoff = backoff
		}
	}
}

// ExponentialBackoff waits 2^attempt seconds, attempt starting at 0.
func ExponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// NewRunner creates a Runner. Unset collaborators default to no-op implementations.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		logger:   logging.NewNoOpLogger(),
		metrics:  metrics.NewNoOpCollector(),
		backoff:  ExponentialBackoff,
		idlePoll: defaultIdlePoll,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.events == nil {
		r.events = events.NewLoggingPublisher(nil)
	}
	r.logger = r.logger.With("component", "runner")
	return r
}

// Summary describes the outcome of a run.
type Summary struct {
	RunID     string
	Succeeded int
	Failed    int
	Cancelled bool
	// Reasons maps each failed top-level step to its failure reason.
	Reasons map[string]string
}

// Success reports whether every step succeeded and the run was not cancelled.
func (s Summary) Success() bool {
	return !s.Cancelled && s.Failed == 0
}

// Err describes an unsuccessful run: a cancelled DomainError, or one
// ExecutionError per failed top-level step in id order, joined.
func (s Summary) Err() error {
	if s.Cancelled {
		return scenario.NewDomainError(scenario.ErrCodeCancelled, "run cancelled", nil, map[string]interface{}{"run_id": s.RunID})
	}
	if s.Failed == 0 {
		return nil
	}

	ids := make([]string, 0, len(s.Reasons))
	for id := range s.Reasons {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	errs := make([]error, 0, len(ids))
	for _, id := range ids {
		reason := s.Reasons[id]
		errs = append(errs, batcherrors.NewExecutionError(id, scenario.NewDomainError(reasonCode(reason), reason, nil, nil)))
	}
	return errors.Join(errs...)
}

func reasonCode(reason string) scenario.ErrorCode {
	switch reason {
	case ReasonTimeout:
		return scenario.ErrCodeTimeout
	case ReasonCancelled:
		return scenario.ErrCodeCancelled
	case ReasonUpstreamFailed:
		return scenario.ErrCodeUpstream
	default:
		return scenario.ErrCodeExecution
	}
}

// Run executes every step of s until the dependency graph is resolved or
// ctx is cancelled. Step failures are reported through the event stream
// and the Summary; the returned error is reserved for configuration
// problems that prevent the run from starting. ScenarioFinished is
// published exactly once, after every other event of the run.
func (r *Runner) Run(ctx context.Context, s *scenario.Scenario, handles *EngineHandles, vars *ExecutionContext) (Summary, error) {
	summary := Summary{RunID: uuid.NewString(), Reasons: map[string]string{}}
	if vars == nil {
		vars = NewExecutionContext()
	}

	rn := &run{
		Runner:  r,
		id:      summary.RunID,
		handles: handles,
		vars:    vars,
		logger:  r.logger.With("run_id", summary.RunID),
	}

	defer func() {
		r.publish(ctx, scenario.ScenarioFinished{
			RunID:     summary.RunID,
			Cancelled: summary.Cancelled,
			Succeeded: summary.Succeeded,
			Failed:    summary.Failed,
		})
	}()

	if s == nil {
		return summary, fmt.Errorf("scenario is nil")
	}
	if err := scenario.ValidateDependencies(s.Steps); err != nil {
		rn.logger.Error(ctx, "scenario dependency graph is invalid", "scenario", s.Name, "error", err)
		r.metrics.IncCounter(ctx, ports.MetricScenarioRuns, map[string]string{"status": "failure"})
		return summary, scenario.NewDomainError(scenario.ErrCodeConfig, "invalid dependency graph", err, map[string]interface{}{"scenario": s.Name})
	}

	rn.logger.Info(ctx, "scenario started", "scenario", s.Name, "steps", len(s.Steps))
	start := time.Now()

	out, err := rn.schedule(ctx, s.Steps, "", false)
	summary.Succeeded = out.succeeded
	summary.Failed = out.failed
	summary.Cancelled = out.cancelled
	for id, reason := range out.reasons {
		summary.Reasons[id] = reason
	}

	status := "success"
	switch {
	case summary.Cancelled:
		status = "cancelled"
	case summary.Failed > 0 || err != nil:
		status = "failure"
	}
	r.metrics.IncCounter(ctx, ports.MetricScenarioRuns, map[string]string{"status": status})
	rn.logger.Info(ctx, "scenario finished",
		"scenario", s.Name,
		"status", status,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return summary, err
}

func (r *Runner) publish(ctx context.Context, event scenario.Event) {
	if err := r.events.Publish(context.WithoutCancel(ctx), event); err != nil {
		r.logger.Warn(ctx, "failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

// run carries the state shared by every scheduler and step of one Run call.
type run struct {
	*Runner
	id       string
	handles  *EngineHandles
	vars     *ExecutionContext
	logger   ports.Logger
	inFlight atomic.Int64
}

type stepResult struct {
	index   int
	outcome StepOutcome
}

type scheduleOutcome struct {
	succeeded int
	failed    int
	cancelled bool
	reasons   map[string]string
	// firstFailure names the first step that failed on its own, not by propagation.
	firstFailure string
}

// schedule resolves one sibling step list. Event ids are prefix+step id.
// With failFast set, no new step is dispatched after the first failure and
// blocked dependents are not reported.
func (r *run) schedule(ctx context.Context, steps []scenario.Step, prefix string, failFast bool) (scheduleOutcome, error) {
	out := scheduleOutcome{reasons: make(map[string]string)}
	if err := scenario.ValidateDependencies(steps); err != nil {
		return out, err
	}

	total := len(steps)
	started := make([]bool, total)
	succeeded := make(map[string]bool, total)
	failed := make(map[string]bool, total)
	results := make(chan stepResult, total)
	inFlight := 0

	apply := func(res stepResult) {
		step := steps[res.index]
		eventID := prefix + step.ID
		if res.outcome.Success {
			succeeded[step.ID] = true
			out.succeeded++
			r.publish(ctx, scenario.StepFinished{StepID: eventID, Success: true})
			return
		}
		failed[step.ID] = true
		out.failed++
		out.reasons[step.ID] = res.outcome.Reason
		if out.firstFailure == "" {
			out.firstFailure = fmt.Sprintf("step %s failed: %s", step.ID, res.outcome.Reason)
		}
		r.publish(ctx, scenario.StepLog{StepID: eventID, Line: res.outcome.Reason})
		r.publish(ctx, scenario.StepFinished{StepID: eventID, Success: false, Reason: res.outcome.Reason})
	}

	halted := func() bool {
		return failFast && out.failed > 0
	}

	for {
		if ctx.Err() != nil {
			out.cancelled = true
			break
		}
		if halted() {
			break
		}

		if !failFast {
			r.propagateBlocked(ctx, steps, prefix, started, failed, &out)
		}

		var sequential, parallel []int
		for i, step := range steps {
			if started[i] || !dependenciesMet(step, succeeded) {
				continue
			}
			if step.AllowParallel {
				parallel = append(parallel, i)
			} else {
				sequential = append(sequential, i)
			}
		}

		progressed := false
		for _, i := range sequential {
			if ctx.Err() != nil || halted() {
				break
			}
			started[i] = true
			progressed = true
			r.publish(ctx, scenario.StepStarted{StepID: prefix + steps[i].ID})
			apply(stepResult{index: i, outcome: r.runStep(ctx, steps[i], prefix+steps[i].ID)})
		}

		for _, i := range parallel {
			if ctx.Err() != nil || halted() {
				break
			}
			if r.maxParallel > 0 && inFlight >= r.maxParallel {
				break
			}
			started[i] = true
			progressed = true
			inFlight++
			r.publish(ctx, scenario.StepStarted{StepID: prefix + steps[i].ID})
			r.trackInFlight(ctx, 1)
			go func(i int) {
				defer r.trackInFlight(ctx, -1)
				results <- stepResult{index: i, outcome: r.runStep(ctx, steps[i], prefix+steps[i].ID)}
			}(i)
		}

		if inFlight > 0 {
			apply(<-results)
			inFlight--
			continue
		}

		if out.succeeded+out.failed == total {
			break
		}
		if progressed {
			continue
		}

		select {
		case <-ctx.Done():
		case <-time.After(r.idlePoll):
		}
	}

	for inFlight > 0 {
		apply(<-results)
		inFlight--
	}
	if ctx.Err() != nil && out.succeeded < total {
		out.cancelled = true
	}

	return out, nil
}

// propagateBlocked marks every not yet started step with a failed
// dependency as failed, repeating until no new step is blocked.
func (r *run) propagateBlocked(ctx context.Context, steps []scenario.Step, prefix string, started []bool, failed map[string]bool, out *scheduleOutcome) {
	for changed := true; changed; {
		changed = false
		for i, step := range steps {
			if started[i] || !dependsOnAny(step, failed) {
				continue
			}
			started[i] = true
			failed[step.ID] = true
			out.failed++
			out.reasons[step.ID] = ReasonUpstreamFailed
			changed = true

			eventID := prefix + step.ID
			r.metrics.IncCounter(ctx, ports.MetricStepExecutions, map[string]string{"step_kind": step.KindLabel(), "status": "blocked"})
			r.publish(ctx, scenario.StepLog{StepID: eventID, Line: "not executed: " + ReasonUpstreamFailed})
			r.publish(ctx, scenario.StepFinished{StepID: eventID, Success: false, Reason: ReasonUpstreamFailed})
		}
	}
}

func (r *run) trackInFlight(ctx context.Context, delta int64) {
	current := r.inFlight.Add(delta)
	r.metrics.SetGauge(ctx, ports.MetricParallelInFlight, float64(current), nil)
}

func dependenciesMet(step scenario.Step, succeeded map[string]bool) bool {
	for _, dep := range step.DependsOn {
		if !succeeded[dep] {
			return false
		}
	}
	return true
}

func dependsOnAny(step scenario.Step, failed map[string]bool) bool {
	for _, dep := range step.DependsOn {
		if failed[dep] {
			return true
		}
	}
	return false
}
