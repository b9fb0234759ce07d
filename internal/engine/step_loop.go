package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
)

// executeLoop runs the loop body once per glob match, in sorted path order.
// "**" matches any number of directories. Child events are reported under
// "<loop event id>/<child id>".
func (r *run) executeLoop(ctx context.Context, kind scenario.Loop, scope *stepScope) error {
	pattern, err := r.vars.ExpandRequired(kind.GlobPattern, "loop.for_each_glob")
	if err != nil {
		return err
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return fmt.Errorf("parse glob %q: %w", pattern, err)
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		scope.logf("no files match pattern: %s", pattern)
		return nil
	}

	continueOnFailure := kind.IterationFailurePolicy == scenario.IterationContinue
	failures := 0
	for i, match := range matches {
		if ctx.Err() != nil {
			return fmt.Errorf("loop cancelled before iteration %d: %w", i+1, ctx.Err())
		}

		r.vars.Set(kind.LoopVar, match)
		scope.logf("iteration %d/%d: %s = %s", i+1, len(matches), kind.LoopVar, match)

		out, err := r.schedule(ctx, kind.Steps, scope.eventID+"/", true)
		if err != nil {
			return scenario.NewDomainError(scenario.ErrCodeConfig, "invalid loop body", err, map[string]interface{}{"step_id": scope.step.ID})
		}
		if out.cancelled {
			return fmt.Errorf("loop cancelled during iteration %d: %w", i+1, context.Canceled)
		}
		if out.failed == 0 {
			continue
		}

		if !continueOnFailure {
			return fmt.Errorf("iteration %d (%s): %s", i+1, match, out.firstFailure)
		}
		failures++
		scope.logf("iteration %d (%s) failed, continuing: %s", i+1, match, out.firstFailure)
	}

	if failures > 0 {
		scope.logf("%d of %d iterations failed", failures, len(matches))
	}
	return nil
}
