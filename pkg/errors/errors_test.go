package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("unexpected token")
	err := NewParseError("scenario.yaml", 12, underlying)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "scenario.yaml", parseErr.Path)
	require.Equal(t, 12, parseErr.Line)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "scenario.yaml")
}

func TestValidationErrorAggregatesFields(t *testing.T) {
	t.Parallel()

	err := NewValidationError("steps[1].depends_on", "references unknown step", nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "steps[1].depends_on", validationErr.Field)
	require.Contains(t, validationErr.Message, "references unknown step")
}

func TestExecutionErrorIncludesStepContext(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("sqlplus exited with status 1")
	err := NewExecutionError("load_orders", underlying)

	var executionErr *ExecutionError
	require.ErrorAs(t, err, &executionErr)
	require.Equal(t, "load_orders", executionErr.StepID)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestExpansionErrorNamesTemplateAndField(t *testing.T) {
	t.Parallel()

	err := NewExpansionError("SELECT ${MISSING}", []string{"MISSING"})

	var expansionErr *ExpansionError
	require.ErrorAs(t, err, &expansionErr)
	require.Contains(t, err.Error(), "SELECT ${MISSING}")
	require.Contains(t, err.Error(), "MISSING")

	annotated := expansionErr.WithField("sql")
	require.Equal(t, "sql", annotated.Field)
	require.Empty(t, expansionErr.Field)
	require.Contains(t, annotated.Error(), "sql:")
}

func TestTargetErrorMessages(t *testing.T) {
	t.Parallel()

	undefined := NewTargetError("warehouse", nil)
	require.Equal(t, "undefined DB target: warehouse", undefined.Error())

	underlying := stdErrors.New("dsn is empty")
	build := NewTargetError("legacy", underlying)

	var targetErr *TargetError
	require.ErrorAs(t, build, &targetErr)
	require.Equal(t, "legacy", targetErr.Name)
	require.True(t, stdErrors.Is(build, underlying))
	require.Equal(t, "build executor for legacy: dsn is empty", build.Error())
}
