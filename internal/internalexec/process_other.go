//go:build !unix

package internalexec

import (
	"errors"
	"os/exec"
	"time"
)

// ErrRunAsUnsupported is returned by RunAs on platforms without Unix credentials.
var ErrRunAsUnsupported = errors.New("run_as is only supported on Unix platforms")

// ConfigureProcessGroup only bounds how long Wait lingers after the process is killed.
func ConfigureProcessGroup(cmd *exec.Cmd) {
	cmd.WaitDelay = 2 * time.Second
}

// RunAs always fails on this platform.
func RunAs(*exec.Cmd, string) error {
	return ErrRunAsUnsupported
}
