package ports

import "context"

// DBExecutor runs SQL text against one DB target. Implementations must be safe
// for concurrent use by parallel steps and honour ctx cancellation, which is
// how the step timeout reaches the driver or child process.
type DBExecutor interface {
	ExecuteSQL(ctx context.Context, sql string) error
}

// ClosableExecutor is implemented by executors holding resources such as a
// connection pool that must be released when the run ends.
type ClosableExecutor interface {
	DBExecutor
	Close()
}
