package scenario

import "fmt"

// StepKind is the closed set of step execution strategies. Implementations
// live in this package only.
type StepKind interface {
	Label() string
	isStepKind()
}

// SQL runs a statement against a DB target.
type SQL struct {
	SQL      string
	TargetDB string
}

// SQLFile runs the contents of a SQL file against a DB target.
type SQLFile struct {
	Path     string
	TargetDB string
}

// SQLLoader runs the external bulk loader (sqlldr).
type SQLLoader struct {
	ControlFile string
	DataFile    string
	LogFile     string
	BadFile     string
	DiscardFile string
	Conn        string
}

// Shell runs a script through a shell program.
type Shell struct {
	Script      string
	Program     string
	Args        []string
	Env         map[string]string
	WorkingDir  string
	RunAs       string
	ErrorPolicy ShellErrorPolicy
}

// ExtractVar captures a regex group from one line of a file into a variable.
type ExtractVar struct {
	FilePath     string
	LineNumber   int
	Pattern      string
	CaptureGroup int
	VarName      string
}

// Loop runs its child steps once per file matched by GlobPattern.
type Loop struct {
	GlobPattern            string
	LoopVar                string
	IterationFailurePolicy IterationFailurePolicy
	Steps                  []Step
}

func (SQL) Label() string        { return "sql" }
func (SQLFile) Label() string    { return "sql_file" }
func (SQLLoader) Label() string  { return "sql_loader_par" }
func (Shell) Label() string      { return "shell" }
func (ExtractVar) Label() string { return "extract" }
func (Loop) Label() string       { return "loop" }

func (SQL) isStepKind()        {}
func (SQLFile) isStepKind()    {}
func (SQLLoader) isStepKind()  {}
func (Shell) isStepKind()      {}
func (ExtractVar) isStepKind() {}
func (Loop) isStepKind()       {}

// Target returns the DB target name, defaulting to DefaultTarget.
func (k SQL) Target() string { return targetOrDefault(k.TargetDB) }

// Target returns the DB target name, defaulting to DefaultTarget.
func (k SQLFile) Target() string { return targetOrDefault(k.TargetDB) }

func targetOrDefault(name string) string {
	if name == "" {
		return DefaultTarget
	}
	return name
}

// ShellErrorMode enumerates how a non-zero shell exit is handled.
type ShellErrorMode string

const (
	ShellErrorFail   ShellErrorMode = "fail"
	ShellErrorIgnore ShellErrorMode = "ignore"
	ShellErrorRetry  ShellErrorMode = "retry"
)

const (
	// DefaultShellMaxRetries applies to a bare "retry" policy.
	DefaultShellMaxRetries = 3
	// DefaultShellDelaySeconds applies to a bare "retry" policy.
	DefaultShellDelaySeconds = 5
)

// ShellErrorPolicy decides what a non-zero exit of a shell step means.
// MaxRetries and DelaySeconds apply to ShellErrorRetry only.
type ShellErrorPolicy struct {
	Mode         ShellErrorMode
	MaxRetries   int
	DelaySeconds int
}

// FailPolicy treats a non-zero exit as a step error.
func FailPolicy() ShellErrorPolicy { return ShellErrorPolicy{Mode: ShellErrorFail} }

// IgnorePolicy logs a non-zero exit and treats the step as successful.
func IgnorePolicy() ShellErrorPolicy { return ShellErrorPolicy{Mode: ShellErrorIgnore} }

// RetryPolicy re-spawns the process up to maxRetries+1 times in total.
func RetryPolicy(maxRetries, delaySeconds int) ShellErrorPolicy {
	return ShellErrorPolicy{Mode: ShellErrorRetry, MaxRetries: maxRetries, DelaySeconds: delaySeconds}
}

// Normalized maps the zero value to FailPolicy.
func (p ShellErrorPolicy) Normalized() ShellErrorPolicy {
	if p.Mode == "" {
		return FailPolicy()
	}
	return p
}

func (p ShellErrorPolicy) String() string {
	if p.Mode == ShellErrorRetry {
		return fmt.Sprintf("retry(max=%d, delay=%ds)", p.MaxRetries, p.DelaySeconds)
	}
	return string(p.Normalized().Mode)
}

// IterationFailurePolicy decides what a failed loop iteration means for the loop.
type IterationFailurePolicy string

const (
	IterationStopAll  IterationFailurePolicy = "stop_all"
	IterationContinue IterationFailurePolicy = "continue"
)
