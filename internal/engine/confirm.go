package engine

import (
	"context"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
)

// evaluateConfirm resolves one confirmation gate and records the outcome
// in the context as CONFIRM_<STEP_ID>. Disabled gates accept without
// touching the context. A dropped request falls back to the default; a
// wait abandoned because ctx was cancelled rejects the gate and records
// nothing.
func (r *run) evaluateConfirm(ctx context.Context, step scenario.Step, scope *stepScope, phase scenario.ConfirmPhase) bool {
	cfg := step.Confirm
	if !cfg.Enabled(phase) {
		return true
	}

	fallback := cfg.Default()
	accepted := fallback.Accepted()

	if r.bridge == nil {
		scope.logf("confirmation (%s): no responder attached, using default answer %s", phase, fallback)
	} else {
		var answered bool
		accepted, answered = r.awaitAnswer(ctx, step, scope, phase, fallback)
		if !answered {
			scope.logf("confirmation (%s) abandoned without an answer", phase)
			return false
		}
	}

	r.vars.Set(scenario.ConfirmVarName(step.ID), scenario.ConfirmVarValue(accepted))
	if !accepted {
		scope.logf("confirmation (%s) declined", phase)
	}
	return accepted
}

func (r *run) awaitAnswer(ctx context.Context, step scenario.Step, scope *stepScope, phase scenario.ConfirmPhase, fallback scenario.ConfirmAnswer) (accepted, answered bool) {
	id, answer := r.bridge.Register()
	r.publish(ctx, scenario.RequestConfirm{
		RequestID:     id,
		StepID:        scope.eventID,
		StepName:      step.DisplayName(),
		StepKind:      step.KindLabel(),
		Summary:       scenario.Summary(step),
		Message:       step.Confirm.Message(phase),
		DefaultAnswer: fallback,
		Phase:         phase,
	})
	scope.logger.Info(ctx, "waiting for confirmation", "request_id", id, "phase", string(phase))

	select {
	case accepted, ok := <-answer:
		if !ok {
			scope.logf("confirmation (%s) dropped, using default answer %s", phase, fallback)
			return fallback.Accepted(), true
		}
		r.publish(ctx, scenario.ConfirmResponse{RequestID: id, StepID: scope.eventID, Accepted: accepted})
		return accepted, true
	case <-ctx.Done():
		r.bridge.Cancel(id)
		return false, false
	}
}
