package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
	"github.com/alexisbeaulieu97/batchflow/internal/ports"
	batcherrors "github.com/alexisbeaulieu97/batchflow/pkg/errors"
)

// ExecutorFactory builds the executor for one declared DB connection. The
// configuration it receives has already been expanded.
type ExecutorFactory interface {
	Build(ctx context.Context, name string, cfg scenario.DbConnectionConfig) (ports.DBExecutor, error)
}

// ExecutorFactoryFunc adapts a function to ExecutorFactory.
type ExecutorFactoryFunc func(ctx context.Context, name string, cfg scenario.DbConnectionConfig) (ports.DBExecutor, error)

// Build implements ExecutorFactory.
func (f ExecutorFactoryFunc) Build(ctx context.Context, name string, cfg scenario.DbConnectionConfig) (ports.DBExecutor, error) {
	return f(ctx, name, cfg)
}

// EngineHandles maps DB target names to executors for the duration of a run.
// It is read-only once prepared.
type EngineHandles struct {
	executors map[string]ports.DBExecutor
	order     []string
	closeOnce sync.Once
}

// NewEngineHandles wraps an explicit target map. "default" must be present
// for steps that do not name a target.
func NewEngineHandles(executors map[string]ports.DBExecutor) *EngineHandles {
	h := &EngineHandles{executors: make(map[string]ports.DBExecutor, len(executors))}
	for name, exec := range executors {
		h.executors[name] = exec
		h.order = append(h.order, name)
	}
	sort.Strings(h.order)
	return h
}

// PrepareEngineHandles resolves every declared DB connection against vars and
// builds its executor. defaultExecutor is registered under "default" unless
// the scenario declares a connection with that name.
func PrepareEngineHandles(
	ctx context.Context,
	s *scenario.Scenario,
	defaultExecutor ports.DBExecutor,
	vars *ExecutionContext,
	factory ExecutorFactory,
) (*EngineHandles, error) {
	if s == nil {
		return nil, fmt.Errorf("scenario is nil")
	}
	if vars == nil {
		vars = NewExecutionContext()
	}

	handles := &EngineHandles{executors: make(map[string]ports.DBExecutor, len(s.DBConnections)+1)}
	if defaultExecutor != nil {
		handles.executors[scenario.DefaultTarget] = defaultExecutor
		handles.order = append(handles.order, scenario.DefaultTarget)
	}

	names := make([]string, 0, len(s.DBConnections))
	for name := range s.DBConnections {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > 0 && factory == nil {
		return nil, fmt.Errorf("no executor factory configured for %d DB connections", len(names))
	}

	for _, name := range names {
		cfg, err := resolveConnection(vars, s.DBConnections[name])
		if err != nil {
			handles.Close()
			return nil, batcherrors.NewTargetError(name, err)
		}
		exec, err := factory.Build(ctx, name, cfg)
		if err != nil {
			handles.Close()
			return nil, batcherrors.NewTargetError(name, err)
		}
		if _, exists := handles.executors[name]; !exists {
			handles.order = append(handles.order, name)
		}
		handles.executors[name] = exec
	}

	return handles, nil
}

func resolveConnection(vars *ExecutionContext, cfg scenario.DbConnectionConfig) (scenario.DbConnectionConfig, error) {
	resolved := cfg

	dsn, err := vars.ExpandRequired(cfg.DSN, "dsn")
	if err != nil {
		return resolved, err
	}
	resolved.DSN = dsn

	if cfg.Kind == scenario.DbKindOracle {
		if resolved.User, err = vars.ExpandRequired(cfg.User, "user"); err != nil {
			return resolved, err
		}
		if resolved.Password, err = vars.ExpandRequired(cfg.Password, "password"); err != nil {
			return resolved, err
		}
		return resolved, nil
	}

	if resolved.User, err = vars.ExpandOptional(cfg.User, "user"); err != nil {
		return resolved, err
	}
	if resolved.Password, err = vars.ExpandOptional(cfg.Password, "password"); err != nil {
		return resolved, err
	}
	return resolved, nil
}

// Executor returns the executor registered under name.
func (h *EngineHandles) Executor(name string) (ports.DBExecutor, error) {
	if name == "" {
		name = scenario.DefaultTarget
	}
	if h != nil {
		if exec, ok := h.executors[name]; ok {
			return exec, nil
		}
	}
	return nil, batcherrors.NewTargetError(name, nil)
}

// Targets lists the registered target names.
func (h *EngineHandles) Targets() []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.order...)
}

// Close releases executors that hold resources. It is safe to call more than once.
func (h *EngineHandles) Close() {
	if h == nil {
		return
	}
	h.closeOnce.Do(func() {
		for _, name := range h.order {
			if closer, ok := h.executors[name].(ports.ClosableExecutor); ok {
				closer.Close()
			}
		}
	})
}
