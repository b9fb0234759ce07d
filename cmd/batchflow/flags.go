package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
)

func validateScenarioPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("scenario file is required")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve scenario path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("scenario file does not exist: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("scenario path %s is a directory", abs)
	}

	return nil
}

func validateRunOptions(opts runOptions) error {
	if err := validateScenarioPath(opts.ScenarioPath); err != nil {
		return err
	}

	switch scenario.DbKind(opts.DBExecutor) {
	case scenario.DbKindDummy, scenario.DbKindPostgres:
	default:
		return fmt.Errorf("unsupported --db-executor %q: use dummy or postgres", opts.DBExecutor)
	}
	if opts.DBExecutor == string(scenario.DbKindPostgres) && strings.TrimSpace(opts.DBDSN) == "" {
		return fmt.Errorf("--db-dsn is required with --db-executor postgres")
	}
	if opts.MaxParallel < 0 {
		return fmt.Errorf("--max-parallel must be zero (unbounded) or positive")
	}

	return nil
}
