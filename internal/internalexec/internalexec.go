package internalexec

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Stream identifies which pipe a line was read from.
type Stream string

const (
	Stdout Stream = "STDOUT"
	Stderr Stream = "STDERR"
)

// tailLines bounds how much output Result retains per stream.
const tailLines = 50

// LineHandler receives each decoded output line as soon as it is read.
// It may be called concurrently for the two streams.
type LineHandler func(stream Stream, line string)

// Result captures the tail of stdout/stderr emitted by a streaming command run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunStreaming starts cmd, forwards every stdout/stderr line to onLine and
// waits for the process to exit. Lines are decoded with DecodeLine so that
// output in a legacy encoding never breaks the stream.
func RunStreaming(cmd *exec.Cmd, onLine LineHandler) (Result, error) {
	if cmd.Stdout != nil || cmd.Stderr != nil {
		return Result{}, errors.New("internalexec: stdout and stderr must not be set")
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("open stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("open stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, err
	}

	var outTail, errTail tail
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		forward(stdout, Stdout, &outTail, onLine)
	}()
	go func() {
		defer wg.Done()
		forward(stderr, Stderr, &errTail, onLine)
	}()
	wg.Wait()

	err = cmd.Wait()
	res := Result{
		Stdout:   outTail.String(),
		Stderr:   errTail.String(),
		ExitCode: exitCode(cmd, err),
	}
	return res, err
}

func forward(r io.Reader, stream Stream, keep *tail, onLine LineHandler) {
	reader := bufio.NewReader(r)
	for {
		raw, err := reader.ReadBytes('\n')
		if len(raw) > 0 {
			line := DecodeLine(bytes.TrimRight(raw, "\r\n"))
			keep.add(line)
			if onLine != nil {
				onLine(stream, line)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && onLine != nil {
				onLine(stream, fmt.Sprintf("read error: %v", err))
			}
			return
		}
	}
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

// PrimaryOutput returns stderr if present, otherwise stdout.
func PrimaryOutput(res Result) string {
	if res.Stderr != "" {
		return res.Stderr
	}
	return res.Stdout
}

type tail struct {
	lines []string
}

func (t *tail) add(line string) {
	if len(t.lines) == tailLines {
		copy(t.lines, t.lines[1:])
		t.lines[len(t.lines)-1] = line
		return
	}
	t.lines = append(t.lines, line)
}

func (t *tail) String() string {
	return strings.TrimSpace(strings.Join(t.lines, "\n"))
}
