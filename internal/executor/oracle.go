package executor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
	"github.com/alexisbeaulieu97/batchflow/internal/internalexec"
	"github.com/alexisbeaulieu97/batchflow/internal/ports"
)

// Oracle runs statements by piping them into SQL*Plus.
type Oracle struct {
	name    string
	program string
	connect string
	logger  ports.Logger
}

// NewOracle creates an Oracle executor. The client binary is resolved when a
// statement runs, not here.
func NewOracle(name string, cfg scenario.DbConnectionConfig, logger ports.Logger) *Oracle {
	return &Oracle{
		name:    name,
		program: "sqlplus",
		connect: fmt.Sprintf("%s/%s@%s", cfg.User, cfg.Password, cfg.DSN),
		logger:  logger,
	}
}

// ExecuteSQL implements ports.DBExecutor.
func (o *Oracle) ExecuteSQL(ctx context.Context, sql string) error {
	cmd := exec.CommandContext(ctx, o.program, "-S", o.connect)
	cmd.Stdin = strings.NewReader(oracleScript(sql))
	internalexec.ConfigureProcessGroup(cmd)

	res, err := internalexec.RunStreaming(cmd, func(stream internalexec.Stream, line string) {
		o.logger.Debug(ctx, "sqlplus output", "target_db", o.name, "stream", string(stream), "line", line)
	})
	if err != nil {
		if out := internalexec.PrimaryOutput(res); out != "" {
			return fmt.Errorf("sqlplus %s failed: %w: %s", o.name, err, out)
		}
		return fmt.Errorf("sqlplus %s failed: %w", o.name, err)
	}
	return nil
}

// oracleScript wraps sql so that SQL*Plus runs it once and exits with a
// failure status on any SQL or OS error.
func oracleScript(sql string) string {
	var b strings.Builder
	b.WriteString("WHENEVER SQLERROR EXIT FAILURE\n")
	b.WriteString("WHENEVER OSERROR EXIT FAILURE\n")
	b.WriteString("SET HEADING OFF\n")
	b.WriteString("SET FEEDBACK OFF\n")
	b.WriteString(statementBody(sql))
	b.WriteString("\n/\nEXIT\n")
	return b.String()
}

// statementBody drops the terminating semicolon of a plain SQL statement,
// since the trailing "/" already executes the buffer. PL/SQL blocks keep it.
func statementBody(sql string) string {
	body := strings.TrimSpace(sql)
	upper := strings.ToUpper(body)
	for _, prefix := range []string{"BEGIN", "DECLARE", "CREATE OR REPLACE"} {
		if strings.HasPrefix(upper, prefix) {
			return body
		}
	}
	return strings.TrimSuffix(body, ";")
}
