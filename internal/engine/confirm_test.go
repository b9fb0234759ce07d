package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
	"github.com/alexisbeaulieu97/batchflow/internal/ports"
)

func TestConfirmHeadlessDefaultNoSkipsExecution(t *testing.T) {
	pub := &recordingPublisher{}
	exec := &fakeExecutor{}
	vars := NewExecutionContext()

	step := sqlStep("purge", "DELETE FROM orders")
	step.Confirm = &scenario.ConfirmConfig{Before: true, DefaultAnswer: scenario.AnswerNo}
	summary := runScenario(t, newTestRunner(pub), exec, vars, step)

	assert.Empty(t, exec.executed())
	finished, _ := pub.finished("purge")
	assert.False(t, finished.Success)
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, pub.count(scenario.EventRequestConfirm))

	value, ok := vars.Get("CONFIRM_PURGE")
	require.True(t, ok)
	assert.Equal(t, "No", value)
}

func TestConfirmHeadlessDefaultYesRecordsOutcome(t *testing.T) {
	pub := &recordingPublisher{}
	exec := &fakeExecutor{}
	vars := NewExecutionContext()

	gated := sqlStep("load", "INSERT INTO t VALUES (1)")
	gated.Confirm = &scenario.ConfirmConfig{Before: true}
	summary := runScenario(t, newTestRunner(pub), exec, vars, gated, sqlStep("audit", "SELECT '${CONFIRM_LOAD}'", "load"))

	assert.True(t, summary.Success())
	assert.Equal(t, []string{"INSERT INTO t VALUES (1)", "SELECT 'Yes'"}, exec.executed())
}

func answerWith(bridge *ConfirmBridge, pub *recordingPublisher, accepted bool) {
	pub.onEvent = func(e scenario.Event) {
		if req, ok := e.(scenario.RequestConfirm); ok {
			go bridge.Respond(req.RequestID, accepted)
		}
	}
}

func TestConfirmBridgeAnswerAccepts(t *testing.T) {
	pub := &recordingPublisher{}
	bridge := NewConfirmBridge()
	answerWith(bridge, pub, true)
	exec := &fakeExecutor{}

	step := sqlStep("swap", "ALTER TABLE a RENAME TO b\nCOMMIT")
	step.Name = "Swap tables"
	step.Confirm = &scenario.ConfirmConfig{Before: true, MessageBefore: "swap now?", DefaultAnswer: scenario.AnswerNo}
	summary := runScenario(t, newTestRunner(pub, WithConfirmBridge(bridge)), exec, nil, step)

	assert.True(t, summary.Success())
	idx := pub.indexOf(func(e scenario.Event) bool { return e.EventType() == scenario.EventRequestConfirm })
	require.NotEqual(t, -1, idx)
	req := pub.events()[idx].(scenario.RequestConfirm)
	assert.Equal(t, "swap", req.StepID)
	assert.Equal(t, "Swap tables", req.StepName)
	assert.Equal(t, "sql", req.StepKind)
	assert.Equal(t, "swap now?", req.Message)
	assert.Equal(t, scenario.PhaseBefore, req.Phase)
	assert.Equal(t, scenario.AnswerNo, req.DefaultAnswer)
	assert.Contains(t, req.Summary, "ALTER TABLE")

	respIdx := pub.indexOf(func(e scenario.Event) bool { return e.EventType() == scenario.EventConfirmResponse })
	require.Greater(t, respIdx, idx)
	resp := pub.events()[respIdx].(scenario.ConfirmResponse)
	assert.Equal(t, req.RequestID, resp.RequestID)
	assert.True(t, resp.Accepted)
	assert.Empty(t, bridge.Pending())
}

func TestConfirmAfterDeclineFailsCompletedStep(t *testing.T) {
	pub := &recordingPublisher{}
	bridge := NewConfirmBridge()
	answerWith(bridge, pub, false)
	exec := &fakeExecutor{}
	vars := NewExecutionContext()

	step := sqlStep("verify", "SELECT count(*) FROM staging")
	step.Confirm = &scenario.ConfirmConfig{After: true}
	summary := runScenario(t, newTestRunner(pub, WithConfirmBridge(bridge)), exec, vars, step)

	assert.Len(t, exec.executed(), 1, "the action runs before the after gate")
	assert.Equal(t, 1, summary.Failed)
	value, _ := vars.Get("CONFIRM_VERIFY")
	assert.Equal(t, "No", value)
}

func TestConfirmWaitAbandonedOnCancel(t *testing.T) {
	pub := &recordingPublisher{}
	bridge := NewConfirmBridge()
	exec := &fakeExecutor{}
	ctx, cancel := context.WithCancel(context.Background())
	pub.onEvent = func(e scenario.Event) {
		if _, ok := e.(scenario.RequestConfirm); ok {
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()
		}
	}

	step := sqlStep("gate", "SELECT 1")
	step.Confirm = &scenario.ConfirmConfig{Before: true}
	s := &scenario.Scenario{Name: "abandon", Steps: []scenario.Step{step}}
	handles := NewEngineHandles(map[string]ports.DBExecutor{"default": exec})

	vars := NewExecutionContext()

	summary, err := newTestRunner(pub, WithConfirmBridge(bridge)).Run(ctx, s, handles, vars)
	require.NoError(t, err)

	assert.True(t, summary.Cancelled)
	assert.Equal(t, ReasonCancelled, summary.Reasons["gate"])
	assert.Empty(t, bridge.Pending())
	assert.Empty(t, exec.executed())
	assert.Zero(t, pub.count(scenario.EventConfirmResponse))
	assert.True(t, pub.hasLog("gate", "abandoned without an answer"))
	_, recorded := vars.Get(scenario.ConfirmVarName("gate"))
	assert.False(t, recorded)
}

func TestConfirmDroppedRequestUsesDefault(t *testing.T) {
	pub := &recordingPublisher{}
	bridge := NewConfirmBridge()
	exec := &fakeExecutor{}
	vars := NewExecutionContext()
	pub.onEvent = func(e scenario.Event) {
		if req, ok := e.(scenario.RequestConfirm); ok {
			bridge.Cancel(req.RequestID)
		}
	}

	step := sqlStep("gate", "SELECT 1")
	step.Confirm = &scenario.ConfirmConfig{Before: true}
	summary := runScenario(t, newTestRunner(pub, WithConfirmBridge(bridge)), exec, vars, step)

	require.True(t, summary.Success(), summary.Reasons)
	assert.Equal(t, []string{"SELECT 1"}, exec.executed())
	assert.True(t, pub.hasLog("gate", "dropped, using default answer"))
	value, _ := vars.Get("CONFIRM_GATE")
	assert.Equal(t, "Yes", value)
}
