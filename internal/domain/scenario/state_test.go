package scenario

import (
	"fmt"
	"testing"
)

func TestLogBufferDropsOldest(t *testing.T) {
	buf := NewLogBuffer(3)
	for i := 1; i <= 5; i++ {
		buf.Add(fmt.Sprintf("line %d", i))
	}

	lines := buf.Lines()
	if len(lines) != 3 || lines[0] != "line 3" || lines[2] != "line 5" {
		t.Fatalf("unexpected retained lines: %v", lines)
	}
}

func TestStateBoardAppliesEvents(t *testing.T) {
	board := NewStateBoard(Scenario{Name: "s", Steps: []Step{shellStep("a"), shellStep("b", "a")}}, 10)

	if st, _ := board.State("b"); st.Status != StatusPending {
		t.Fatalf("expected pending, got %s", st.Status)
	}

	board.Apply(StepStarted{StepID: "a"})
	board.Apply(StepLog{StepID: "a", Line: "[a] attempt 1"})
	board.Apply(StepFinished{StepID: "a", Success: true})
	board.Apply(StepLog{StepID: "b", Line: "upstream dependency failed"})
	board.Apply(StepFinished{StepID: "b", Reason: "upstream dependency failed"})

	a, _ := board.State("a")
	if a.Status != StatusSuccess || a.StartedAt.IsZero() || a.FinishedAt.IsZero() {
		t.Fatalf("unexpected state for a: %+v", a)
	}
	if len(a.Logs) != 1 || a.Logs[0] != "[a] attempt 1" {
		t.Fatalf("unexpected logs for a: %v", a.Logs)
	}

	b, _ := board.State("b")
	if b.Status != StatusFailed || b.Reason != "upstream dependency failed" {
		t.Fatalf("unexpected state for b: %+v", b)
	}
	if !b.StartedAt.IsZero() {
		t.Fatal("blocked step must not record a start time")
	}

	if board.Finished() {
		t.Fatal("board should not be finished yet")
	}
	board.Apply(ScenarioFinished{})
	if !board.Finished() {
		t.Fatal("board should be finished")
	}
}

func TestStateBoardTracksUnknownSteps(t *testing.T) {
	board := NewStateBoard(Scenario{Name: "s", Steps: []Step{shellStep("a")}}, 0)
	board.Apply(StepStarted{StepID: "child"})

	ids := board.IDs()
	if len(ids) != 2 || ids[1] != "child" {
		t.Fatalf("expected child to be appended, got %v", ids)
	}
}
