package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
)

func (r *run) executeSQL(ctx context.Context, kind scenario.SQL, scope *stepScope) error {
	sql, err := r.vars.ExpandRequired(kind.SQL, "sql")
	if err != nil {
		return err
	}
	scope.logf("executing SQL on %s", kind.Target())
	return r.runSQL(ctx, kind.Target(), sql)
}

func (r *run) executeSQLFile(ctx context.Context, kind scenario.SQLFile, scope *stepScope) error {
	path, err := r.vars.ExpandRequired(kind.Path, "sql_file")
	if err != nil {
		return err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read SQL file %s: %w", path, err)
	}
	sql, err := r.vars.ExpandRequired(string(content), "sql_file_content")
	if err != nil {
		return err
	}
	scope.logf("executing SQL file: %s", path)
	return r.runSQL(ctx, kind.Target(), sql)
}

func (r *run) runSQL(ctx context.Context, target, sql string) error {
	executor, err := r.handles.Executor(target)
	if err != nil {
		return err
	}
	return executor.ExecuteSQL(ctx, sql)
}
