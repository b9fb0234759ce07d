package scenario

import "time"

const (
	// DefaultTarget names the DB executor supplied by the caller.
	DefaultTarget = "default"
	// DefaultTimeoutSeconds applies when a step declares no timeout.
	DefaultTimeoutSeconds = 60
)

// DbKind selects the executor implementation for a declared connection.
type DbKind string

const (
	DbKindDummy    DbKind = "dummy"
	DbKindPostgres DbKind = "postgres"
	DbKindOracle   DbKind = "oracle"
)

// DbConnectionConfig declares a named DB target. DSN, User and Password may
// contain ${NAME} placeholders; an empty value means the field was omitted.
type DbConnectionConfig struct {
	Kind     DbKind
	DSN      string
	User     string
	Password string
}

// Scenario is a named dependency graph of steps plus the DB targets they use.
// The engine never mutates a Scenario.
type Scenario struct {
	Name          string
	DBConnections map[string]DbConnectionConfig
	// Vars seeds the execution context before the run; callers may override them.
	Vars  map[string]string
	Steps []Step
}

// Step is the smallest schedulable unit of work.
type Step struct {
	ID             string
	Name           string
	Kind           StepKind
	DependsOn      []string
	AllowParallel  bool
	Retry          int
	TimeoutSeconds int
	Confirm        *ConfirmConfig
}

// DisplayName returns the step name, falling back to its identifier.
func (s Step) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// Timeout returns the per-attempt execution budget, never less than one second.
func (s Step) Timeout() time.Duration {
	seconds := s.TimeoutSeconds
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}

// HasDependency returns true if the step depends on the provided identifier.
func (s Step) HasDependency(id string) bool {
	for _, dep := range s.DependsOn {
		if dep == id {
			return true
		}
	}
	return false
}

// KindLabel returns the short label of the step's kind, or "unknown".
func (s Step) KindLabel() string {
	if s.Kind == nil {
		return "unknown"
	}
	return s.Kind.Label()
}

// StepIDs returns the identifiers of steps in declaration order.
func StepIDs(steps []Step) []string {
	ids := make([]string, 0, len(steps))
	for _, step := range steps {
		ids = append(ids, step.ID)
	}
	return ids
}

// GetStep retrieves a top-level step by identifier.
func (s Scenario) GetStep(id string) (*Step, error) {
	for i := range s.Steps {
		if s.Steps[i].ID == id {
			copy := s.Steps[i]
			return &copy, nil
		}
	}
	return nil, newDomainError(ErrCodeNotFound, "step not found", nil, map[string]interface{}{"step_id": id})
}
