package engine

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
	"github.com/alexisbeaulieu97/batchflow/internal/internalexec"
)

// SQLLoaderConnVar is consulted when a loader step declares no connection.
const SQLLoaderConnVar = "SQLLDR_CONN"

// sqlLoaderProgram is the bulk loader binary; tests point it at a stub.
var sqlLoaderProgram = "sqlldr"

var errNoLoaderConn = errors.New("sqlldr connection is not configured: set sqlldr.conn or " + SQLLoaderConnVar)

func (r *run) executeSQLLoader(ctx context.Context, kind scenario.SQLLoader, scope *stepScope) error {
	conn, err := r.loaderConn(kind)
	if err != nil {
		return err
	}

	control, err := r.vars.ExpandRequired(kind.ControlFile, "sqlldr.control_file")
	if err != nil {
		return err
	}
	args := []string{conn, "control=" + control}

	optional := []struct {
		key, value, field string
	}{
		{"data", kind.DataFile, "sqlldr.data_file"},
		{"log", kind.LogFile, "sqlldr.log_file"},
		{"bad", kind.BadFile, "sqlldr.bad_file"},
		{"discard", kind.DiscardFile, "sqlldr.discard_file"},
	}
	for _, opt := range optional {
		value, err := r.vars.ExpandOptional(opt.value, opt.field)
		if err != nil {
			return err
		}
		if value != "" {
			args = append(args, opt.key+"="+value)
		}
	}

	scope.logf("running sqlldr control=%s", control)
	cmd := exec.CommandContext(ctx, sqlLoaderProgram, args...)
	internalexec.ConfigureProcessGroup(cmd)

	res, err := internalexec.RunStreaming(cmd, func(stream internalexec.Stream, line string) {
		scope.logf("sqlldr %s: %s", stream, line)
	})
	if err != nil {
		if res.ExitCode > 0 {
			return fmt.Errorf("sqlldr exited with status %d", res.ExitCode)
		}
		return fmt.Errorf("run sqlldr: %w", err)
	}
	return nil
}

func (r *run) loaderConn(kind scenario.SQLLoader) (string, error) {
	if kind.Conn != "" {
		return r.vars.ExpandRequired(kind.Conn, "sqlldr.conn")
	}
	if conn, ok := r.vars.GetOrEnv(SQLLoaderConnVar); ok && conn != "" {
		return conn, nil
	}
	return "", errNoLoaderConn
}
