package scenario

const (
	// EventStepStarted is emitted when a step begins execution.
	EventStepStarted = "step.started"
	// EventStepLog carries one log line produced on behalf of a step.
	EventStepLog = "step.log"
	// EventStepFinished is emitted once per step with its final outcome.
	EventStepFinished = "step.finished"
	// EventRequestConfirm asks an external responder to approve a step.
	EventRequestConfirm = "confirm.requested"
	// EventConfirmResponse records the responder's answer.
	EventConfirmResponse = "confirm.responded"
	// EventScenarioFinished is emitted exactly once, after every other event of a run.
	EventScenarioFinished = "scenario.finished"
)

// Event is the common shape of everything the engine reports. It matches
// the publisher's event contract structurally.
type Event interface {
	EventType() string
	Payload() interface{}
}

// StepStarted marks the beginning of a step.
type StepStarted struct {
	StepID string
}

// StepLog is a single human-readable line attributed to a step.
type StepLog struct {
	StepID string
	Line   string
}

// StepFinished reports the final outcome of a step. Reason is empty on success.
type StepFinished struct {
	StepID  string
	Success bool
	Reason  string
}

// RequestConfirm asks the responder registered under RequestID for a decision.
type RequestConfirm struct {
	RequestID     uint64
	StepID        string
	StepName      string
	StepKind      string
	Summary       string
	Message       string
	DefaultAnswer ConfirmAnswer
	Phase         ConfirmPhase
}

// ConfirmResponse records an answer delivered through the bridge.
type ConfirmResponse struct {
	RequestID uint64
	StepID    string
	Accepted  bool
}

// ScenarioFinished closes the event stream of a run.
type ScenarioFinished struct {
	RunID     string
	Cancelled bool
	Succeeded int
	Failed    int
}

func (StepStarted) EventType() string      { return EventStepStarted }
func (StepLog) EventType() string          { return EventStepLog }
func (StepFinished) EventType() string     { return EventStepFinished }
func (RequestConfirm) EventType() string   { return EventRequestConfirm }
func (ConfirmResponse) EventType() string  { return EventConfirmResponse }
func (ScenarioFinished) EventType() string { return EventScenarioFinished }

func (e StepStarted) Payload() interface{} {
	return map[string]interface{}{"step_id": e.StepID}
}

func (e StepLog) Payload() interface{} {
	return map[string]interface{}{"step_id": e.StepID, "line": e.Line}
}

func (e StepFinished) Payload() interface{} {
	payload := map[string]interface{}{"step_id": e.StepID, "success": e.Success}
	if e.Reason != "" {
		payload["reason"] = e.Reason
	}
	return payload
}

func (e RequestConfirm) Payload() interface{} {
	return map[string]interface{}{
		"request_id":     e.RequestID,
		"step_id":        e.StepID,
		"step_name":      e.StepName,
		"step_kind":      e.StepKind,
		"phase":          string(e.Phase),
		"default_answer": string(e.DefaultAnswer),
		"message":        e.Message,
	}
}

func (e ConfirmResponse) Payload() interface{} {
	return map[string]interface{}{
		"request_id": e.RequestID,
		"step_id":    e.StepID,
		"accepted":   e.Accepted,
	}
}

func (e ScenarioFinished) Payload() interface{} {
	return map[string]interface{}{
		"run_id":    e.RunID,
		"cancelled": e.Cancelled,
		"succeeded": e.Succeeded,
		"failed":    e.Failed,
	}
}
