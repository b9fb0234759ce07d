package scenario

import (
	"context"
	"fmt"
	"sort"
	"strings"

	cfgpkg "github.com/alexisbeaulieu97/batchflow/internal/config"
	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
	"github.com/alexisbeaulieu97/batchflow/internal/engine"
	"github.com/alexisbeaulieu97/batchflow/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/batchflow/internal/ports"
)

// ExecutorFactory builds executors for declared DB connections and for the
// "default" target selected on the command line.
type ExecutorFactory interface {
	engine.ExecutorFactory
	Default(ctx context.Context, kind scenario.DbKind, dsn string) (ports.DBExecutor, error)
}

// Service coordinates loading, resource preparation and execution of a scenario.
type Service struct {
	loader  ports.ScenarioLoader
	factory ExecutorFactory
	logger  ports.Logger
}

// NewService constructs an application scenario service.
func NewService(loader ports.ScenarioLoader, factory ExecutorFactory, logger ports.Logger) *Service {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Service{
		loader:  loader,
		factory: factory,
		logger:  logger.With("layer", "application", "component", "scenario_service"),
	}
}

// Load reads and validates the scenario at path.
func (s *Service) Load(ctx context.Context, path string) (*scenario.Scenario, error) {
	return s.loader.Load(ctx, path)
}

// Validate checks the scenario at path without running it.
func (s *Service) Validate(ctx context.Context, path string) error {
	return s.loader.Validate(ctx, path)
}

// RunRequest configures one scenario run.
type RunRequest struct {
	// Scenario is used as is when set; otherwise Path is loaded.
	Scenario *scenario.Scenario
	Path     string
	// Overrides replace scenario vars of the same name.
	Overrides   map[string]string
	DefaultKind scenario.DbKind
	DefaultDSN  string
	Runner      *engine.Runner
}

// RunOutcome captures what a run produced.
type RunOutcome struct {
	Scenario *scenario.Scenario
	Summary  engine.Summary
	// Vars is the execution context as it stood when the run ended.
	Vars map[string]string
}

// Run loads the scenario if needed, seeds the execution context, prepares DB
// handles and drives the runner to completion. Handles are released before
// Run returns.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunOutcome, error) {
	scn := req.Scenario
	if scn == nil {
		loaded, err := s.Load(ctx, req.Path)
		if err != nil {
			return nil, err
		}
		scn = loaded
	}

	vars := engine.NewExecutionContextWith(mergeVars(scn.Vars, req.Overrides))

	dsn, err := vars.ExpandOptional(req.DefaultDSN, "db_dsn")
	if err != nil {
		return nil, fmt.Errorf("resolve default DSN: %w", err)
	}
	defaultExec, err := s.factory.Default(ctx, req.DefaultKind, dsn)
	if err != nil {
		return nil, fmt.Errorf("build default executor: %w", err)
	}

	handles, err := engine.PrepareEngineHandles(ctx, scn, defaultExec, vars, s.factory)
	if err != nil {
		if closer, ok := defaultExec.(ports.ClosableExecutor); ok {
			closer.Close()
		}
		return nil, fmt.Errorf("prepare DB targets: %w", err)
	}
	defer handles.Close()

	s.logger.Info(ctx, "running scenario", "scenario", scn.Name, "targets", strings.Join(handles.Targets(), ","))

	runner := req.Runner
	if runner == nil {
		runner = engine.NewRunner(engine.WithLogger(s.logger))
	}
	summary, runErr := runner.Run(ctx, scn, handles, vars)

	outcome := &RunOutcome{Scenario: scn, Summary: summary, Vars: vars.Snapshot()}
	if runErr != nil {
		return outcome, runErr
	}
	return outcome, nil
}

func mergeVars(base, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// ParseOverrides turns repeated KEY=VALUE arguments into a var map. Keys
// must be valid placeholder names; the last occurrence of a key wins.
func ParseOverrides(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	v := cfgpkg.GetValidator()
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid override %q: expected KEY=VALUE", pair)
		}
		key = strings.TrimSpace(key)
		if err := v.Var(key, "required,placeholder_name"); err != nil {
			return nil, fmt.Errorf("invalid override key %q: must match [A-Z0-9_]+", key)
		}
		out[key] = value
	}
	return out, nil
}

// FailedSteps returns the failed top-level step ids of a summary, sorted.
func FailedSteps(summary engine.Summary) []string {
	ids := make([]string, 0, len(summary.Reasons))
	for id := range summary.Reasons {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
