package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Step kind names accepted in scenario files.
const (
	KindSQL       = "sql"
	KindSQLFile   = "sql_file"
	KindSQLLoader = "sql_loader_par"
	KindShell     = "shell"
	KindExtract   = "extract_var_from_file"
	KindLoop      = "loop"

	kindExtractAlias = "extract"
)

// Document is the on-disk representation of a scenario.
type Document struct {
	Name        string              `yaml:"name" validate:"required,min=1,max=200"`
	Description string              `yaml:"description,omitempty"`
	Vars        map[string]string   `yaml:"vars,omitempty" validate:"omitempty,dive,keys,placeholder_name,endkeys"`
	DB          map[string]DBConfig `yaml:"db,omitempty" validate:"omitempty,dive"`
	Steps       []Step              `yaml:"steps" validate:"required,min=1"`
}

// DBConfig declares one named DB target.
type DBConfig struct {
	Kind     string `yaml:"kind" validate:"required,oneof=dummy postgres oracle"`
	DSN      string `yaml:"dsn,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// Step is one entry of a steps list. Exactly one kind-specific block is set
// after decoding, selected by Kind.
type Step struct {
	ID            string   `yaml:"id" validate:"required,step_id"`
	Name          string   `yaml:"name,omitempty"`
	Kind          string   `yaml:"kind" validate:"required"`
	DependsOn     []string `yaml:"depends_on,omitempty"`
	AllowParallel bool     `yaml:"allow_parallel,omitempty"`
	Retry         int      `yaml:"retry,omitempty" validate:"min=0,max=255"`
	TimeoutSec    int      `yaml:"timeout_sec,omitempty" validate:"min=0"`
	Confirm       *Confirm `yaml:"confirm,omitempty"`

	SQL       *SQLStep       `yaml:"-"`
	SQLFile   *SQLFileStep   `yaml:"-"`
	SQLLoader *SQLLoaderStep `yaml:"-"`
	Shell     *ShellStep     `yaml:"-"`
	Extract   *ExtractStep   `yaml:"-"`
	Loop      *LoopStep      `yaml:"-"`
}

// UnmarshalYAML decodes the common step fields, then the block matching kind.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	type baseStep struct {
		ID            string   `yaml:"id"`
		Name          string   `yaml:"name"`
		Kind          string   `yaml:"kind"`
		DependsOn     []string `yaml:"depends_on"`
		AllowParallel bool     `yaml:"allow_parallel"`
		Retry         int      `yaml:"retry"`
		TimeoutSec    *int     `yaml:"timeout_sec"`
		Confirm       *Confirm `yaml:"confirm"`
	}

	var base baseStep
	if err := value.Decode(&base); err != nil {
		return err
	}

	*s = Step{
		ID:            base.ID,
		Name:          base.Name,
		Kind:          base.Kind,
		DependsOn:     append([]string(nil), base.DependsOn...),
		AllowParallel: base.AllowParallel,
		Retry:         base.Retry,
		TimeoutSec:    60,
		Confirm:       base.Confirm,
	}
	if base.TimeoutSec != nil {
		s.TimeoutSec = *base.TimeoutSec
	}
	if s.Kind == kindExtractAlias {
		s.Kind = KindExtract
	}

	switch s.Kind {
	case KindSQL:
		var sql SQLStep
		if err := value.Decode(&sql); err != nil {
			return err
		}
		s.SQL = &sql
	case KindSQLFile:
		var file SQLFileStep
		if err := value.Decode(&file); err != nil {
			return err
		}
		s.SQLFile = &file
	case KindSQLLoader:
		var holder struct {
			SQLLoader *SQLLoaderStep `yaml:"sqlldr"`
		}
		if err := value.Decode(&holder); err != nil {
			return err
		}
		s.SQLLoader = holder.SQLLoader
	case KindShell:
		var holder struct {
			Shell *ShellStep `yaml:"shell"`
		}
		if err := value.Decode(&holder); err != nil {
			return err
		}
		s.Shell = holder.Shell
	case KindExtract:
		var holder struct {
			Extract *ExtractStep `yaml:"extract"`
		}
		if err := value.Decode(&holder); err != nil {
			return err
		}
		s.Extract = holder.Extract
	case KindLoop:
		var holder struct {
			Loop *LoopStep `yaml:"loop"`
		}
		if err := value.Decode(&holder); err != nil {
			return err
		}
		s.Loop = holder.Loop
	}

	return nil
}

// SQLStep runs inline SQL.
type SQLStep struct {
	SQL      string `yaml:"sql" validate:"required"`
	TargetDB string `yaml:"target_db,omitempty"`
}

// SQLFileStep runs the SQL held in a file.
type SQLFileStep struct {
	Path     string `yaml:"sql_file" validate:"required"`
	TargetDB string `yaml:"target_db,omitempty"`
}

// SQLLoaderStep runs an Oracle SQL*Loader job.
type SQLLoaderStep struct {
	ControlFile string `yaml:"control_file" validate:"required"`
	DataFile    string `yaml:"data_file,omitempty"`
	LogFile     string `yaml:"log_file,omitempty"`
	BadFile     string `yaml:"bad_file,omitempty"`
	DiscardFile string `yaml:"discard_file,omitempty"`
	Conn        string `yaml:"conn,omitempty"`
}

// ShellStep runs a script through a shell.
type ShellStep struct {
	Script      string            `yaml:"script" validate:"required"`
	Program     string            `yaml:"shell_program,omitempty"`
	Args        []string          `yaml:"shell_args,omitempty"`
	Env         map[string]string `yaml:"env,omitempty"`
	WorkingDir  string            `yaml:"working_dir,omitempty"`
	RunAs       string            `yaml:"run_as,omitempty"`
	ErrorPolicy ShellErrorPolicy  `yaml:"error_policy,omitempty"`
}

// UnmarshalYAML accepts "command" as an alias of "script".
func (s *ShellStep) UnmarshalYAML(value *yaml.Node) error {
	type rawShell ShellStep
	var raw struct {
		rawShell `yaml:",inline"`
		Command  string `yaml:"command"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*s = ShellStep(raw.rawShell)
	if s.Script == "" {
		s.Script = raw.Command
	}
	return nil
}

// ShellErrorPolicy is written either as a bare mode or as a mapping:
//
//	error_policy: ignore
//	error_policy: {type: retry, max_retries: 2, delay_secs: 1}
type ShellErrorPolicy struct {
	Type       string `yaml:"type" validate:"omitempty,oneof=fail ignore retry"`
	MaxRetries int    `yaml:"max_retries" validate:"min=0"`
	DelaySecs  int    `yaml:"delay_secs" validate:"min=0"`
}

// Retry policy defaults used when a field is omitted.
const (
	DefaultMaxRetries = 3
	DefaultDelaySecs  = 5
)

// UnmarshalYAML implements the string-or-mapping form.
func (p *ShellErrorPolicy) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*p = ShellErrorPolicy{Type: strings.TrimSpace(value.Value)}
		if p.Type == "retry" {
			p.MaxRetries = DefaultMaxRetries
			p.DelaySecs = DefaultDelaySecs
		}
		return p.check(value)
	}

	var raw struct {
		Type       string `yaml:"type"`
		MaxRetries *int   `yaml:"max_retries"`
		DelaySecs  *int   `yaml:"delay_secs"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*p = ShellErrorPolicy{Type: raw.Type, MaxRetries: DefaultMaxRetries, DelaySecs: DefaultDelaySecs}
	if raw.MaxRetries != nil {
		p.MaxRetries = *raw.MaxRetries
	}
	if raw.DelaySecs != nil {
		p.DelaySecs = *raw.DelaySecs
	}
	return p.check(value)
}

func (p *ShellErrorPolicy) check(value *yaml.Node) error {
	switch p.Type {
	case "fail", "ignore", "retry":
		return nil
	default:
		return fmt.Errorf("line %d: unknown shell error policy %q", value.Line, p.Type)
	}
}

// ExtractStep captures a regex group from one line of a file.
type ExtractStep struct {
	FilePath string `yaml:"file_path" validate:"required"`
	Line     int    `yaml:"line" validate:"min=1"`
	Pattern  string `yaml:"pattern" validate:"required"`
	Group    int    `yaml:"group" validate:"min=0"`
	VarName  string `yaml:"var_name" validate:"required,placeholder_name"`
}

// LoopStep repeats a nested steps list for every glob match.
type LoopStep struct {
	ForEachGlob        string `yaml:"for_each_glob" validate:"required"`
	AsVar              string `yaml:"as_var" validate:"required,placeholder_name"`
	OnIterationFailure string `yaml:"on_iteration_failure,omitempty" validate:"omitempty,oneof=stop_all continue"`
	Steps              []Step `yaml:"steps" validate:"required,min=1"`
}

// Confirm declares approval gates around a step.
type Confirm struct {
	Before        bool   `yaml:"before,omitempty"`
	After         bool   `yaml:"after,omitempty"`
	MessageBefore string `yaml:"message_before,omitempty"`
	MessageAfter  string `yaml:"message_after,omitempty"`
	DefaultAnswer string `yaml:"default_answer,omitempty" validate:"omitempty,oneof=yes no"`
}
