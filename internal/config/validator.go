package config

import (
	"fmt"

	batcherrors "github.com/alexisbeaulieu97/batchflow/pkg/errors"
)

// ValidateDocument performs schema validation on a decoded scenario file.
// Graph-level rules (dependencies, cycles, DB targets) are checked on the
// converted scenario.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return batcherrors.NewValidationError("scenario", "scenario is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(doc); err != nil {
		return convertValidationError("", err)
	}

	for name, db := range doc.DB {
		if err := v.Struct(db); err != nil {
			return convertValidationError("db."+name, err)
		}
	}

	return validateSteps(doc.Steps, "steps")
}

func validateSteps(steps []Step, scope string) error {
	for i, step := range steps {
		if err := ValidateStep(step, fieldForStep(scope, i, "")); err != nil {
			return err
		}
	}
	return nil
}

// ValidateStep validates a single step and, for loops, its body. path
// locates the step in error messages.
func ValidateStep(step Step, path string) error {
	v := validatorInstance()
	if err := v.Struct(step); err != nil {
		return convertValidationError(path, err)
	}
	if step.Confirm != nil {
		if err := v.Struct(step.Confirm); err != nil {
			return convertValidationError(joinField(path, "confirm"), err)
		}
	}

	var block interface{}
	var blockName string
	switch step.Kind {
	case KindSQL:
		block, blockName = step.SQL, "sql"
	case KindSQLFile:
		block, blockName = step.SQLFile, "sql_file"
	case KindSQLLoader:
		if step.SQLLoader == nil {
			return missingBlock(path, "sqlldr", step)
		}
		block, blockName = step.SQLLoader, "sqlldr"
	case KindShell:
		if step.Shell == nil {
			return missingBlock(path, "shell", step)
		}
		if err := v.Struct(step.Shell.ErrorPolicy); err != nil {
			return convertValidationError(joinField(path, "shell.error_policy"), err)
		}
		block, blockName = step.Shell, "shell"
	case KindExtract:
		if step.Extract == nil {
			return missingBlock(path, "extract", step)
		}
		block, blockName = step.Extract, "extract"
	case KindLoop:
		if step.Loop == nil {
			return missingBlock(path, "loop", step)
		}
		block, blockName = step.Loop, "loop"
	default:
		return batcherrors.NewValidationError(joinField(path, "kind"), fmt.Sprintf("unknown step kind %q", step.Kind), nil)
	}

	if err := v.Struct(block); err != nil {
		return convertValidationError(joinField(path, blockName), err)
	}

	if step.Loop != nil {
		return validateSteps(step.Loop.Steps, joinField(path, "loop.steps"))
	}
	return nil
}

func missingBlock(path, block string, step Step) error {
	return batcherrors.NewValidationError(joinField(path, block), fmt.Sprintf("%s step %q requires a %s block", step.Kind, step.ID, block), nil)
}
