package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"time"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
	"github.com/alexisbeaulieu97/batchflow/internal/internalexec"
)

// shellCommand is a fully expanded shell invocation.
type shellCommand struct {
	program string
	args    []string
	env     []string
	dir     string
	runAs   string
}

func (r *run) executeShell(ctx context.Context, kind scenario.Shell, scope *stepScope) error {
	command, err := r.resolveShell(kind)
	if err != nil {
		return err
	}

	policy := kind.ErrorPolicy.Normalized()
	spawns := 1
	if policy.Mode == scenario.ShellErrorRetry {
		spawns = policy.MaxRetries + 1
	}
	delay := time.Duration(policy.DelaySeconds) * time.Second

	var lastErr error
	for spawn := 1; spawn <= spawns; spawn++ {
		if spawn > 1 {
			scope.logf("shell retry %d/%d in %s", spawn-1, policy.MaxRetries, delay)
			if !sleepCtx(ctx, delay) {
				return ctx.Err()
			}
		}

		lastErr = r.spawnShell(ctx, command, scope)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}

		switch policy.Mode {
		case scenario.ShellErrorIgnore:
			scope.logf("ignoring shell failure: %v", lastErr)
			return nil
		case scenario.ShellErrorRetry:
			scope.logf("shell failed: %v", lastErr)
		default:
			return lastErr
		}
	}
	return fmt.Errorf("shell failed after %d attempts: %w", spawns, lastErr)
}

func (r *run) resolveShell(kind scenario.Shell) (shellCommand, error) {
	program, flag := defaultShell()
	if kind.Program != "" {
		expanded, err := r.vars.ExpandRequired(kind.Program, "shell.shell_program")
		if err != nil {
			return shellCommand{}, err
		}
		program = expanded
	}

	script, err := r.vars.ExpandRequired(kind.Script, "shell.script")
	if err != nil {
		return shellCommand{}, err
	}
	args := []string{flag, script}
	for i, arg := range kind.Args {
		expanded, err := r.vars.ExpandRequired(arg, fmt.Sprintf("shell.shell_args[%d]", i))
		if err != nil {
			return shellCommand{}, err
		}
		args = append(args, expanded)
	}

	env := os.Environ()
	keys := make([]string, 0, len(kind.Env))
	for key := range kind.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value, err := r.vars.ExpandRequired(kind.Env[key], "shell.env."+key)
		if err != nil {
			return shellCommand{}, err
		}
		env = append(env, key+"="+value)
	}

	dir, err := r.vars.ExpandOptional(kind.WorkingDir, "shell.working_dir")
	if err != nil {
		return shellCommand{}, err
	}
	runAs, err := r.vars.ExpandOptional(kind.RunAs, "shell.run_as")
	if err != nil {
		return shellCommand{}, err
	}

	return shellCommand{program: program, args: args, env: env, dir: dir, runAs: runAs}, nil
}

func (r *run) spawnShell(ctx context.Context, command shellCommand, scope *stepScope) error {
	cmd := exec.CommandContext(ctx, command.program, command.args...)
	cmd.Env = command.env
	cmd.Dir = command.dir
	internalexec.ConfigureProcessGroup(cmd)
	if command.runAs != "" {
		if err := internalexec.RunAs(cmd, command.runAs); err != nil {
			return err
		}
	}

	res, err := internalexec.RunStreaming(cmd, func(stream internalexec.Stream, line string) {
		scope.logf("%s: %s", stream, line)
	})
	if err != nil {
		if res.ExitCode > 0 {
			return fmt.Errorf("shell exited with status %d", res.ExitCode)
		}
		return fmt.Errorf("run shell: %w", err)
	}
	return nil
}

func defaultShell() (program, flag string) {
	if runtime.GOOS == "windows" {
		return "cmd", "/C"
	}
	return "sh", "-c"
}
