package executor

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
	"github.com/alexisbeaulieu97/batchflow/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/batchflow/internal/ports"
)

// Factory builds executors by DB kind.
type Factory struct {
	logger ports.Logger
}

// NewFactory returns a Factory that hands logger to every executor it builds.
func NewFactory(logger ports.Logger) *Factory {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Factory{logger: logger.With("component", "executor")}
}

// Build implements engine.ExecutorFactory.
func (f *Factory) Build(ctx context.Context, name string, cfg scenario.DbConnectionConfig) (ports.DBExecutor, error) {
	switch cfg.Kind {
	case scenario.DbKindDummy:
		return NewDummy(name, f.logger), nil
	case scenario.DbKindPostgres:
		return NewPostgres(ctx, name, cfg, f.logger)
	case scenario.DbKindOracle:
		return NewOracle(name, cfg, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported DB kind %q", cfg.Kind)
	}
}

// Default builds the executor used for the "default" target from CLI flags.
func (f *Factory) Default(ctx context.Context, kind scenario.DbKind, dsn string) (ports.DBExecutor, error) {
	if kind == "" {
		kind = scenario.DbKindDummy
	}
	return f.Build(ctx, scenario.DefaultTarget, scenario.DbConnectionConfig{Kind: kind, DSN: dsn})
}
