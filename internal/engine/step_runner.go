package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
	"github.com/alexisbeaulieu97/batchflow/internal/ports"
	batcherrors "github.com/alexisbeaulieu97/batchflow/pkg/errors"
)

// StepOutcome is the terminal state of one step. Reason is empty on success.
type StepOutcome struct {
	Success bool
	Reason  string
}

func succeeded() StepOutcome { return StepOutcome{Success: true} }

func failedWith(reason string) StepOutcome { return StepOutcome{Reason: reason} }

// RunStep runs a single step outside of any scheduler, with the same gates,
// retries and events it would get inside Run. StepStarted and StepFinished
// are left to the caller.
func (r *Runner) RunStep(ctx context.Context, step scenario.Step, handles *EngineHandles, vars *ExecutionContext) StepOutcome {
	if vars == nil {
		vars = NewExecutionContext()
	}
	rn := &run{Runner: r, handles: handles, vars: vars, logger: r.logger}
	return rn.runStep(ctx, step, step.ID)
}

// runStep drives one step through its confirmation gates and attempts.
func (r *run) runStep(ctx context.Context, step scenario.Step, eventID string) StepOutcome {
	scope := r.scope(ctx, step, eventID)
	kind := step.KindLabel()
	start := time.Now()

	outcome := r.attemptStep(ctx, step, scope)

	status := "success"
	if !outcome.Success {
		status = "failure"
		scope.logger.Warn(ctx, "step failed", "reason", outcome.Reason, "duration_ms", time.Since(start).Milliseconds())
	} else {
		scope.logger.Debug(ctx, "step succeeded", "duration_ms", time.Since(start).Milliseconds())
	}
	r.metrics.IncCounter(ctx, ports.MetricStepExecutions, map[string]string{"step_kind": kind, "status": status})
	r.metrics.ObserveHistogram(ctx, ports.MetricStepDuration, time.Since(start).Seconds(), map[string]string{"step_kind": kind})
	return outcome
}

func (r *run) attemptStep(ctx context.Context, step scenario.Step, scope *stepScope) StepOutcome {
	if !r.evaluateConfirm(ctx, step, scope, scenario.PhaseBefore) {
		if ctx.Err() != nil {
			return failedWith(ReasonCancelled)
		}
		return failedWith("declined at confirmation before execution")
	}

	timeout := step.Timeout()
	maxAttempts := step.Retry + 1
	for attempt := 0; ; {
		if ctx.Err() != nil {
			return failedWith(ReasonCancelled)
		}
		backoff := r.backoff(attempt)

		scope.logf("attempt %d/%d", attempt+1, maxAttempts)
		r.metrics.IncCounter(ctx, ports.MetricStepAttempts, map[string]string{"step_kind": step.KindLabel()})

		err := r.executeWithTimeout(ctx, step, scope, timeout)
		switch {
		case err == nil:
			if !r.evaluateConfirm(ctx, step, scope, scenario.PhaseAfter) {
				if ctx.Err() != nil {
					return failedWith(ReasonCancelled)
				}
				return failedWith("declined at confirmation after execution")
			}
			return succeeded()
		case ctx.Err() != nil:
			return failedWith(ReasonCancelled)
		case isConfigError(err):
			return failedWith(err.Error())
		}

		timedOut := errors.Is(err, context.DeadlineExceeded)
		attempt++
		if attempt > step.Retry {
			if timedOut {
				return failedWith(ReasonTimeout)
			}
			return failedWith(err.Error())
		}

		if timedOut {
			scope.logf("timed out after %s, retrying in %s", timeout, backoff)
		} else {
			scope.logf("error: %v, retrying in %s", err, backoff)
		}
		if !sleepCtx(ctx, backoff) {
			return failedWith(ReasonCancelled)
		}
	}
}

// isConfigError reports errors that no retry can fix: unresolved
// placeholders, undefined DB targets and malformed loop bodies.
func isConfigError(err error) bool {
	var expansionErr *batcherrors.ExpansionError
	if errors.As(err, &expansionErr) {
		return true
	}
	var targetErr *batcherrors.TargetError
	if errors.As(err, &targetErr) {
		return true
	}
	return scenario.CodeOf(err) == scenario.ErrCodeConfig
}

// executeWithTimeout runs the kind logic and gives up when the step timeout
// elapses or ctx is cancelled, even if the kind logic does not return.
func (r *run) executeWithTimeout(ctx context.Context, step scenario.Step, scope *stepScope, timeout time.Duration) error {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- r.executeKind(attemptCtx, step, scope)
	}()

	select {
	case err := <-done:
		if err != nil && attemptCtx.Err() != nil && ctx.Err() == nil {
			return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return err
	case <-attemptCtx.Done():
		return attemptCtx.Err()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// stepScope routes a step's log lines to the event stream and the logger.
type stepScope struct {
	run     *run
	ctx     context.Context
	step    scenario.Step
	eventID string
	logger  ports.Logger
}

func (r *run) scope(ctx context.Context, step scenario.Step, eventID string) *stepScope {
	return &stepScope{
		run:     r,
		ctx:     ctx,
		step:    step,
		eventID: eventID,
		logger:  r.logger.With("step_id", eventID, "step_kind", step.KindLabel()),
	}
}

func (s *stepScope) log(line string) {
	s.run.publish(s.ctx, scenario.StepLog{StepID: s.eventID, Line: line})
}

func (s *stepScope) logf(format string, args ...interface{}) {
	s.log(fmt.Sprintf(format, args...))
}
