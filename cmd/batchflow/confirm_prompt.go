package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
)

// confirmPrompter asks the operator to approve confirmation gates. Input is
// read on its own goroutine so a pending prompt never outlives the run.
type confirmPrompter struct {
	out   io.Writer
	lines <-chan string
}

func newConfirmPrompter(in io.Reader, out io.Writer) *confirmPrompter {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return &confirmPrompter{out: out, lines: lines}
}

// Ask blocks until the operator answers, input ends, or ctx is done. The
// second result is false when the default answer was used without input.
func (p *confirmPrompter) Ask(ctx context.Context, req scenario.RequestConfirm) (bool, bool) {
	fallback := req.DefaultAnswer.Accepted()

	title := req.StepName
	if title == "" {
		title = req.StepID
	}
	fmt.Fprintf(p.out, "\n[%s] %s (%s), confirm %s\n", req.StepID, title, req.StepKind, req.Phase)
	if req.Message != "" {
		fmt.Fprintln(p.out, req.Message)
	}
	if req.Summary != "" {
		for _, line := range strings.Split(req.Summary, "\n") {
			fmt.Fprintf(p.out, "    %s\n", line)
		}
	}

	choices := "[y/N]"
	if fallback {
		choices = "[Y/n]"
	}

	for {
		fmt.Fprintf(p.out, "Proceed? %s ", choices)
		select {
		case <-ctx.Done():
			fmt.Fprintln(p.out)
			return fallback, false
		case line, ok := <-p.lines:
			if !ok {
				fmt.Fprintln(p.out)
				return fallback, false
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "":
				return fallback, true
			case "y", "yes":
				return true, true
			case "n", "no":
				return false, true
			}
			fmt.Fprintln(p.out, "Please answer y or n.")
		}
	}
}
