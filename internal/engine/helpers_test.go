package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
	"github.com/alexisbeaulieu97/batchflow/internal/ports"
)

type recordingPublisher struct {
	mu       sync.Mutex
	recorded []scenario.Event
	onEvent  func(scenario.Event)
}

func (p *recordingPublisher) Publish(_ context.Context, event ports.DomainEvent) error {
	e, ok := event.(scenario.Event)
	if !ok {
		return nil
	}
	p.mu.Lock()
	p.recorded = append(p.recorded, e)
	hook := p.onEvent
	p.mu.Unlock()
	if hook != nil {
		hook(e)
	}
	return nil
}

func (p *recordingPublisher) Subscribe(string, ports.EventHandler) (ports.Subscription, error) {
	return nil, nil
}

func (p *recordingPublisher) events() []scenario.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]scenario.Event(nil), p.recorded...)
}

// indexOf returns the position of the first event matching pred, or -1.
func (p *recordingPublisher) indexOf(pred func(scenario.Event) bool) int {
	for i, e := range p.events() {
		if pred(e) {
			return i
		}
	}
	return -1
}

func (p *recordingPublisher) startedIndex(id string) int {
	return p.indexOf(func(e scenario.Event) bool {
		s, ok := e.(scenario.StepStarted)
		return ok && s.StepID == id
	})
}

func (p *recordingPublisher) finished(id string) (scenario.StepFinished, int) {
	for i, e := range p.events() {
		if f, ok := e.(scenario.StepFinished); ok && f.StepID == id {
			return f, i
		}
	}
	return scenario.StepFinished{}, -1
}

func (p *recordingPublisher) logs(id string) []string {
	var lines []string
	for _, e := range p.events() {
		if l, ok := e.(scenario.StepLog); ok && l.StepID == id {
			lines = append(lines, l.Line)
		}
	}
	return lines
}

func (p *recordingPublisher) count(eventType string) int {
	n := 0
	for _, e := range p.events() {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) hasLog(id, substr string) bool {
	for _, line := range p.logs(id) {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// fakeExecutor records SQL and can fail, block or delay.
type fakeExecutor struct {
	mu      sync.Mutex
	sqls    []string
	delay   time.Duration
	block   bool
	failN   int
	err     error
	closed  int
	active  int
	maxSeen int
}

func (f *fakeExecutor) ExecuteSQL(ctx context.Context, sql string) error {
	f.mu.Lock()
	f.sqls = append(f.sqls, sql)
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	fail := f.err != nil && (f.failN == 0 || len(f.sqls) <= f.failN)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if fail {
		return f.err
	}
	return nil
}

func (f *fakeExecutor) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func (f *fakeExecutor) executed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sqls...)
}

func (f *fakeExecutor) peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxSeen
}

func noBackoff(int) time.Duration { return 0 }

func newTestRunner(pub *recordingPublisher, opts ...Option) *Runner {
	base := []Option{WithEvents(pub), WithBackoff(noBackoff)}
	return NewRunner(append(base, opts...)...)
}

func sqlStep(id, sql string, deps ...string) scenario.Step {
	return scenario.Step{ID: id, Kind: scenario.SQL{SQL: sql}, DependsOn: deps}
}

func runScenario(t *testing.T, runner *Runner, exec *fakeExecutor, vars *ExecutionContext, steps ...scenario.Step) Summary {
	t.Helper()
	s := &scenario.Scenario{Name: t.Name(), Steps: steps}
	handles := NewEngineHandles(map[string]ports.DBExecutor{scenario.DefaultTarget: exec})
	summary, err := runner.Run(context.Background(), s, handles, vars)
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}
	return summary
}
