package config

import (
	"fmt"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
)

// ToScenario converts a validated document into the domain model.
func (d *Document) ToScenario() (*scenario.Scenario, error) {
	s := &scenario.Scenario{
		Name:          d.Name,
		DBConnections: make(map[string]scenario.DbConnectionConfig, len(d.DB)),
		Vars:          make(map[string]string, len(d.Vars)),
	}
	for key, value := range d.Vars {
		s.Vars[key] = value
	}
	for name, db := range d.DB {
		s.DBConnections[name] = scenario.DbConnectionConfig{
			Kind:     scenario.DbKind(db.Kind),
			DSN:      db.DSN,
			User:     db.User,
			Password: db.Password,
		}
	}

	steps, err := convertSteps(d.Steps)
	if err != nil {
		return nil, err
	}
	s.Steps = steps
	return s, nil
}

func convertSteps(in []Step) ([]scenario.Step, error) {
	out := make([]scenario.Step, 0, len(in))
	for _, step := range in {
		converted, err := convertStep(step)
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

func convertStep(in Step) (scenario.Step, error) {
	step := scenario.Step{
		ID:             in.ID,
		Name:           in.Name,
		DependsOn:      append([]string(nil), in.DependsOn...),
		AllowParallel:  in.AllowParallel,
		Retry:          in.Retry,
		TimeoutSeconds: in.TimeoutSec,
	}
	if in.Confirm != nil {
		step.Confirm = &scenario.ConfirmConfig{
			Before:        in.Confirm.Before,
			After:         in.Confirm.After,
			MessageBefore: in.Confirm.MessageBefore,
			MessageAfter:  in.Confirm.MessageAfter,
			DefaultAnswer: scenario.ConfirmAnswer(in.Confirm.DefaultAnswer),
		}
	}

	switch {
	case in.SQL != nil:
		step.Kind = scenario.SQL{SQL: in.SQL.SQL, TargetDB: in.SQL.TargetDB}
	case in.SQLFile != nil:
		step.Kind = scenario.SQLFile{Path: in.SQLFile.Path, TargetDB: in.SQLFile.TargetDB}
	case in.SQLLoader != nil:
		step.Kind = scenario.SQLLoader{
			ControlFile: in.SQLLoader.ControlFile,
			DataFile:    in.SQLLoader.DataFile,
			LogFile:     in.SQLLoader.LogFile,
			BadFile:     in.SQLLoader.BadFile,
			DiscardFile: in.SQLLoader.DiscardFile,
			Conn:        in.SQLLoader.Conn,
		}
	case in.Shell != nil:
		step.Kind = scenario.Shell{
			Script:      in.Shell.Script,
			Program:     in.Shell.Program,
			Args:        append([]string(nil), in.Shell.Args...),
			Env:         in.Shell.Env,
			WorkingDir:  in.Shell.WorkingDir,
			RunAs:       in.Shell.RunAs,
			ErrorPolicy: convertPolicy(in.Shell.ErrorPolicy),
		}
	case in.Extract != nil:
		step.Kind = scenario.ExtractVar{
			FilePath:     in.Extract.FilePath,
			LineNumber:   in.Extract.Line,
			Pattern:      in.Extract.Pattern,
			CaptureGroup: in.Extract.Group,
			VarName:      in.Extract.VarName,
		}
	case in.Loop != nil:
		children, err := convertSteps(in.Loop.Steps)
		if err != nil {
			return step, err
		}
		policy := scenario.IterationFailurePolicy(in.Loop.OnIterationFailure)
		if policy == "" {
			policy = scenario.IterationStopAll
		}
		step.Kind = scenario.Loop{
			GlobPattern:            in.Loop.ForEachGlob,
			LoopVar:                in.Loop.AsVar,
			IterationFailurePolicy: policy,
			Steps:                  children,
		}
	default:
		return step, fmt.Errorf("step %q has no %s configuration", in.ID, in.Kind)
	}
	return step, nil
}

func convertPolicy(p ShellErrorPolicy) scenario.ShellErrorPolicy {
	switch p.Type {
	case "ignore":
		return scenario.IgnorePolicy()
	case "retry":
		return scenario.RetryPolicy(p.MaxRetries, p.DelaySecs)
	default:
		return scenario.FailPolicy()
	}
}
