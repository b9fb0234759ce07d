package scenario

import (
	"fmt"
	"strings"
)

// Validate ensures the scenario satisfies all structural invariants: unique
// step ids per list, resolvable and acyclic dependencies, well formed kinds
// and known DB targets. Loop bodies are validated recursively.
func (s Scenario) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return newMissingFieldError("name")
	}
	if len(s.Steps) == 0 {
		return newValidationError("scenario requires at least one step", nil)
	}

	for name, conn := range s.DBConnections {
		if err := conn.Validate(); err != nil {
			return err.WithContext(map[string]interface{}{"db": name})
		}
	}

	return s.validateSteps(s.Steps, "steps")
}

func (s Scenario) validateSteps(steps []Step, scope string) error {
	seen := make(map[string]struct{}, len(steps))
	for i, step := range steps {
		path := fmt.Sprintf("%s[%d]", scope, i)
		if err := step.Validate(); err != nil {
			return err.WithContext(map[string]interface{}{"path": path})
		}
		if _, ok := seen[step.ID]; ok {
			return newDuplicateError(step.ID).WithContext(map[string]interface{}{"path": path})
		}
		seen[step.ID] = struct{}{}

		switch kind := step.Kind.(type) {
		case SQL:
			if err := s.checkTarget(step.ID, kind.Target()); err != nil {
				return err
			}
		case SQLFile:
			if err := s.checkTarget(step.ID, kind.Target()); err != nil {
				return err
			}
		case Loop:
			if err := s.validateSteps(kind.Steps, path+".loop.steps"); err != nil {
				return err
			}
		}
	}

	if err := ValidateDependencies(steps); err != nil {
		return err
	}
	return nil
}

func (s Scenario) checkTarget(stepID, target string) *DomainError {
	if target == DefaultTarget {
		return nil
	}
	if _, ok := s.DBConnections[target]; ok {
		return nil
	}
	return newDomainError(ErrCodeNotFound, "undefined DB target", nil, map[string]interface{}{
		"step_id":   stepID,
		"target_db": target,
	})
}

// Validate ensures the step is well formed on its own.
func (s Step) Validate() *DomainError {
	if s.ID == "" {
		return newMissingFieldError("id")
	}
	if s.Retry < 0 {
		return newValidationError("retry must be non-negative", map[string]interface{}{"step_id": s.ID})
	}
	if s.TimeoutSeconds < 0 {
		return newValidationError("timeout must be non-negative", map[string]interface{}{"step_id": s.ID})
	}
	if s.Kind == nil {
		return newMissingFieldError("kind").WithContext(map[string]interface{}{"step_id": s.ID})
	}

	ctx := map[string]interface{}{"step_id": s.ID, "kind": s.Kind.Label()}
	switch kind := s.Kind.(type) {
	case SQL:
		if strings.TrimSpace(kind.SQL) == "" {
			return newMissingFieldError("sql").WithContext(ctx)
		}
	case SQLFile:
		if kind.Path == "" {
			return newMissingFieldError("sql_file").WithContext(ctx)
		}
	case SQLLoader:
		if kind.ControlFile == "" {
			return newMissingFieldError("sqlldr.control_file").WithContext(ctx)
		}
	case Shell:
		if strings.TrimSpace(kind.Script) == "" {
			return newMissingFieldError("shell.script").WithContext(ctx)
		}
		policy := kind.ErrorPolicy.Normalized()
		if policy.Mode == ShellErrorRetry && (policy.MaxRetries < 0 || policy.DelaySeconds < 0) {
			return newValidationError("retry policy values must be non-negative", ctx)
		}
	case ExtractVar:
		if kind.FilePath == "" {
			return newMissingFieldError("extract.file_path").WithContext(ctx)
		}
		if kind.LineNumber < 1 {
			return newValidationError("extract line numbers start at 1", ctx)
		}
		if kind.Pattern == "" {
			return newMissingFieldError("extract.pattern").WithContext(ctx)
		}
		if kind.VarName == "" {
			return newMissingFieldError("extract.var_name").WithContext(ctx)
		}
	case Loop:
		if kind.GlobPattern == "" {
			return newMissingFieldError("loop.for_each_glob").WithContext(ctx)
		}
		if kind.LoopVar == "" {
			return newMissingFieldError("loop.as_var").WithContext(ctx)
		}
		if len(kind.Steps) == 0 {
			return newValidationError("loop requires at least one step", ctx)
		}
		switch kind.IterationFailurePolicy {
		case "", IterationStopAll, IterationContinue:
		default:
			return newValidationError("unknown iteration failure policy", ctx)
		}
	}
	return nil
}

// Validate ensures the connection declares what its kind needs.
func (c DbConnectionConfig) Validate() *DomainError {
	switch c.Kind {
	case DbKindDummy:
		return nil
	case DbKindPostgres:
		if c.DSN == "" {
			return newMissingFieldError("dsn")
		}
	case DbKindOracle:
		if c.DSN == "" {
			return newMissingFieldError("dsn")
		}
		if c.User == "" {
			return newMissingFieldError("user")
		}
		if c.Password == "" {
			return newMissingFieldError("password")
		}
	default:
		return newValidationError("unknown DB kind", map[string]interface{}{"kind": string(c.Kind)})
	}
	return nil
}

// ValidateDependencies ensures every dependency in steps refers to a sibling
// and that the sibling graph has no cycles.
func ValidateDependencies(steps []Step) error {
	lookup := make(map[string]Step, len(steps))
	for _, step := range steps {
		lookup[step.ID] = step
	}

	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if dep == step.ID {
				return newDependencyError("step cannot depend on itself", map[string]interface{}{"step_id": step.ID})
			}
			if _, ok := lookup[dep]; !ok {
				return newDependencyError("dependency not found", map[string]interface{}{"step_id": step.ID, "missing_dependency": dep})
			}
		}
	}

	visited := make(map[string]bool, len(steps))
	stack := make(map[string]bool, len(steps))
	var path []string
	var detect func(string) *DomainError
	detect = func(id string) *DomainError {
		visited[id] = true
		stack[id] = true
		path = append(path, id)

		for _, dep := range lookup[id].DependsOn {
			if !visited[dep] {
				if err := detect(dep); err != nil {
					return err
				}
			} else if stack[dep] {
				cycle := append([]string(nil), path...)
				cycle = append(cycle, dep)
				return newCycleError(cycle)
			}
		}

		stack[id] = false
		path = path[:len(path)-1]
		return nil
	}

	for _, step := range steps {
		if !visited[step.ID] {
			if err := detect(step.ID); err != nil {
				return err
			}
		}
	}

	return nil
}
