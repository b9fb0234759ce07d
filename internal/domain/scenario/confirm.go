package scenario

import (
	"fmt"
	"strings"
)

// ConfirmAnswer is the answer used when no responder decides.
type ConfirmAnswer string

const (
	AnswerYes ConfirmAnswer = "yes"
	AnswerNo  ConfirmAnswer = "no"
)

// Accepted reports whether the answer approves the step. Anything other than
// AnswerNo counts as yes.
func (a ConfirmAnswer) Accepted() bool {
	return a != AnswerNo
}

// ConfirmPhase identifies which gate a confirmation belongs to.
type ConfirmPhase string

const (
	PhaseBefore ConfirmPhase = "before"
	PhaseAfter  ConfirmPhase = "after"
)

// ConfirmConfig declares human approval gates around a step.
type ConfirmConfig struct {
	Before        bool
	After         bool
	MessageBefore string
	MessageAfter  string
	DefaultAnswer ConfirmAnswer
}

// Enabled reports whether the gate for phase is switched on.
func (c *ConfirmConfig) Enabled(phase ConfirmPhase) bool {
	if c == nil {
		return false
	}
	if phase == PhaseAfter {
		return c.After
	}
	return c.Before
}

// Message returns the operator message for phase, if any.
func (c *ConfirmConfig) Message(phase ConfirmPhase) string {
	if c == nil {
		return ""
	}
	if phase == PhaseAfter {
		return c.MessageAfter
	}
	return c.MessageBefore
}

// Default returns the configured default answer, which is yes when unset.
func (c *ConfirmConfig) Default() ConfirmAnswer {
	if c == nil || c.DefaultAnswer == "" {
		return AnswerYes
	}
	return c.DefaultAnswer
}

// ConfirmVarName returns the context variable recording a step's confirmation outcome.
func ConfirmVarName(stepID string) string {
	return "CONFIRM_" + strings.ToUpper(stepID)
}

// ConfirmVarValue renders an outcome as stored in the context.
func ConfirmVarValue(accepted bool) string {
	if accepted {
		return "Yes"
	}
	return "No"
}

const summaryLines = 4

// Summary renders a short human-readable description of what the step will do.
func Summary(step Step) string {
	switch kind := step.Kind.(type) {
	case SQL:
		return trimLines(kind.SQL, summaryLines)
	case SQLFile:
		return "file: " + kind.Path
	case SQLLoader:
		return "control: " + kind.ControlFile
	case Shell:
		return trimLines(kind.Script, summaryLines)
	case ExtractVar:
		return fmt.Sprintf("file: %s / group: %d / var: %s", kind.FilePath, kind.CaptureGroup, kind.VarName)
	case Loop:
		return fmt.Sprintf("loop %s -> %s (%d steps)", kind.GlobPattern, kind.LoopVar, len(kind.Steps))
	default:
		return ""
	}
}

func trimLines(text string, max int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) <= max {
		return strings.Join(lines, "\n")
	}
	kept := append(lines[:max:max], "...")
	return strings.Join(kept, "\n")
}
