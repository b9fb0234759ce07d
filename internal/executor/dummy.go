package executor

import (
	"context"

	"github.com/alexisbeaulieu97/batchflow/internal/ports"
)

// Dummy accepts every statement without running it. It backs the "dummy"
// DB kind and dry runs.
type Dummy struct {
	name   string
	logger ports.Logger
}

// NewDummy creates a Dummy executor for the named target.
func NewDummy(name string, logger ports.Logger) *Dummy {
	return &Dummy{name: name, logger: logger}
}

// ExecuteSQL implements ports.DBExecutor.
func (d *Dummy) ExecuteSQL(ctx context.Context, sql string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.logger.Debug(ctx, "dummy executor skipped statement", "target_db", d.name, "sql_length", len(sql))
	return nil
}
