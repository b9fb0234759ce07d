package engine

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
)

// executeKind runs the kind-specific logic of one attempt.
func (r *run) executeKind(ctx context.Context, step scenario.Step, scope *stepScope) error {
	switch kind := step.Kind.(type) {
	case scenario.SQL:
		return r.executeSQL(ctx, kind, scope)
	case scenario.SQLFile:
		return r.executeSQLFile(ctx, kind, scope)
	case scenario.SQLLoader:
		return r.executeSQLLoader(ctx, kind, scope)
	case scenario.Shell:
		return r.executeShell(ctx, kind, scope)
	case scenario.ExtractVar:
		return r.executeExtract(kind, scope)
	case scenario.Loop:
		return r.executeLoop(ctx, kind, scope)
	case nil:
		return scenario.NewDomainError(scenario.ErrCodeConfig, "step has no kind", nil, map[string]interface{}{"step_id": step.ID})
	default:
		return fmt.Errorf("unsupported step kind %T", kind)
	}
}
