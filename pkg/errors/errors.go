package errors

import (
	"fmt"
	"strings"
)

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures configuration validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecutionError represents a runtime failure while executing a step.
type ExecutionError struct {
	StepID string
	Err    error
}

// NewExecutionError constructs an ExecutionError.
func NewExecutionError(stepID string, err error) error {
	return &ExecutionError{StepID: stepID, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.StepID != "" {
		return fmt.Sprintf("execution error on step %s: %v", e.StepID, e.Err)
	}
	return fmt.Sprintf("execution error: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExpansionError reports a template that still holds unresolved ${NAME}
// placeholders after substitution.
type ExpansionError struct {
	Template string
	Field    string
	Missing  []string
}

// NewExpansionError constructs an ExpansionError for the given template.
func NewExpansionError(template string, missing []string) error {
	return &ExpansionError{Template: template, Missing: missing}
}

func (e *ExpansionError) Error() string {
	if e == nil {
		return ""
	}
	detail := ""
	if len(e.Missing) > 0 {
		detail = fmt.Sprintf(" (missing %s)", strings.Join(e.Missing, ", "))
	}
	if e.Field != "" {
		return fmt.Sprintf("expansion error: %s: unresolved variable in %q%s", e.Field, e.Template, detail)
	}
	return fmt.Sprintf("expansion error: unresolved variable in %q%s", e.Template, detail)
}

// WithField returns a copy of the error annotated with the field being expanded.
func (e *ExpansionError) WithField(field string) *ExpansionError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Field = field
	return &clone
}

// TargetError indicates a DB target that is undefined or could not be built.
type TargetError struct {
	Name    string
	Message string
	Err     error
}

// NewTargetError constructs a TargetError for the named DB target.
func NewTargetError(name string, err error) error {
	message := "undefined DB target"
	if err != nil {
		message = err.Error()
	}
	return &TargetError{Name: name, Message: message, Err: err}
}

func (e *TargetError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Name)
	}
	return fmt.Sprintf("build executor for %s: %s", e.Name, e.Message)
}

// Unwrap exposes the underlying error.
func (e *TargetError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
