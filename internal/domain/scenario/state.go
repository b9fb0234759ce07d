package scenario

import (
	"sync"
	"time"
)

// DefaultLogLimit bounds the log lines retained per step.
const DefaultLogLimit = 1000

// StepStatus enumerates the lifecycle of a step as seen by observers.
type StepStatus string

const (
	StatusPending StepStatus = "pending"
	StatusRunning StepStatus = "running"
	StatusSuccess StepStatus = "success"
	StatusFailed  StepStatus = "failed"
)

// LogBuffer is a bounded FIFO of log lines; the oldest line is dropped when full.
type LogBuffer struct {
	limit int
	lines []string
}

// NewLogBuffer creates a buffer with the provided capacity (defaults to DefaultLogLimit).
func NewLogBuffer(limit int) *LogBuffer {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	return &LogBuffer{limit: limit}
}

// Add appends a line, evicting the oldest one when the buffer is full.
func (b *LogBuffer) Add(line string) {
	if len(b.lines) == b.limit {
		copy(b.lines, b.lines[1:])
		b.lines[len(b.lines)-1] = line
		return
	}
	b.lines = append(b.lines, line)
}

// Lines returns a copy of the retained lines, oldest first.
func (b *LogBuffer) Lines() []string {
	return append([]string(nil), b.lines...)
}

// Len returns the number of retained lines.
func (b *LogBuffer) Len() int {
	return len(b.lines)
}

// StepRuntimeState is the observable state of one step during a run.
type StepRuntimeState struct {
	Status     StepStatus
	Reason     string
	StartedAt  time.Time
	FinishedAt time.Time
	Logs       []string
}

type stepState struct {
	status     StepStatus
	reason     string
	startedAt  time.Time
	finishedAt time.Time
	logs       *LogBuffer
}

// StateBoard folds the engine's event stream into per-step runtime state.
// It is safe for concurrent use; Apply is normally driven by an event
// subscription while readers take snapshots.
type StateBoard struct {
	mu       sync.RWMutex
	order    []string
	steps    map[string]*stepState
	limit    int
	finished bool
	now      func() time.Time
}

// NewStateBoard creates a board with a pending entry for every top-level step.
func NewStateBoard(s Scenario, logLimit int) *StateBoard {
	board := &StateBoard{
		steps: make(map[string]*stepState, len(s.Steps)),
		limit: logLimit,
		now:   time.Now,
	}
	for _, step := range s.Steps {
		board.entry(step.ID)
	}
	return board
}

func (b *StateBoard) entry(id string) *stepState {
	st, ok := b.steps[id]
	if !ok {
		st = &stepState{status: StatusPending, logs: NewLogBuffer(b.limit)}
		b.steps[id] = st
		b.order = append(b.order, id)
	}
	return st
}

// Apply updates the board from a single engine event. Unknown events are ignored.
func (b *StateBoard) Apply(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch e := event.(type) {
	case StepStarted:
		st := b.entry(e.StepID)
		st.status = StatusRunning
		st.startedAt = b.now()
	case StepLog:
		b.entry(e.StepID).logs.Add(e.Line)
	case StepFinished:
		st := b.entry(e.StepID)
		st.finishedAt = b.now()
		if e.Success {
			st.status = StatusSuccess
			st.reason = ""
		} else {
			st.status = StatusFailed
			st.reason = e.Reason
		}
	case ScenarioFinished:
		b.finished = true
	}
}

// State returns a snapshot of one step's runtime state.
func (b *StateBoard) State(id string) (StepRuntimeState, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st, ok := b.steps[id]
	if !ok {
		return StepRuntimeState{}, false
	}
	return StepRuntimeState{
		Status:     st.status,
		Reason:     st.reason,
		StartedAt:  st.startedAt,
		FinishedAt: st.finishedAt,
		Logs:       st.logs.Lines(),
	}, true
}

// IDs returns step identifiers in the order they were first seen.
func (b *StateBoard) IDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.order...)
}

// Finished reports whether ScenarioFinished has been applied.
func (b *StateBoard) Finished() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.finished
}
