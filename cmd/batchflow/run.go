package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	scenarioapp "github.com/alexisbeaulieu97/batchflow/internal/app/scenario"
	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
	"github.com/alexisbeaulieu97/batchflow/internal/engine"
	"github.com/alexisbeaulieu97/batchflow/internal/executor"
	infraconfig "github.com/alexisbeaulieu97/batchflow/internal/infrastructure/config"
	"github.com/alexisbeaulieu97/batchflow/internal/infrastructure/events"
	"github.com/alexisbeaulieu97/batchflow/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/batchflow/internal/logger"
	"github.com/alexisbeaulieu97/batchflow/internal/ports"
)

// errRunFailed is returned when the scenario ran but did not fully succeed.
// The summary has already been printed, so main only sets the exit code.
var errRunFailed = errors.New("scenario did not complete successfully")

type runOptions struct {
	ScenarioPath   string
	Sets           []string
	DBExecutor     string
	DBDSN          string
	NonInteractive bool
	MaxParallel    int
	MetricsAddr    string
}

var (
	runCmdRunner = runScenario
	stdinIsTTY   = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
)

func newRunCmd(root *rootFlags) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "Run a scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && opts.ScenarioPath == "" {
				opts.ScenarioPath = args[0]
			}
			if !opts.NonInteractive && !stdinIsTTY() {
				opts.NonInteractive = true
			}
			if err := validateRunOptions(opts); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runCmdRunner(ctx, cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ScenarioPath, "scenario", "s", "", "Path to the scenario file")
	cmd.Flags().StringArrayVar(&opts.Sets, "set", nil, "Seed a variable as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&opts.DBExecutor, "db-executor", string(scenario.DbKindDummy), "Executor for the default DB target (dummy, postgres)")
	cmd.Flags().StringVar(&opts.DBDSN, "db-dsn", "", "DSN for the default DB target; may contain ${VAR} placeholders")
	cmd.Flags().BoolVar(&opts.NonInteractive, "non-interactive", false, "Answer confirmation gates with their default answers")
	cmd.Flags().IntVar(&opts.MaxParallel, "max-parallel", 0, "Cap on concurrently running parallel steps (0 = unbounded)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")

	return cmd
}

func runScenario(ctx context.Context, cmd *cobra.Command, root *rootFlags, opts runOptions) error {
	overrides, err := scenarioapp.ParseOverrides(opts.Sets)
	if err != nil {
		return err
	}

	diag, err := logging.New(logging.Options{
		Writer:        cmd.ErrOrStderr(),
		Level:         root.logLevel,
		HumanReadable: root.humanReadable(),
		Layer:         "cli",
	})
	if err != nil {
		return err
	}
	ctx = logging.WithCorrelationID(ctx, logging.GenerateCorrelationID())

	out, err := logger.New(logger.Options{
		Level:         root.logLevel,
		HumanReadable: root.humanReadable(),
		Writer:        cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	collector, metricsSrv, err := startMetrics(opts.MetricsAddr, diag)
	if err != nil {
		return fmt.Errorf("start metrics endpoint: %w", err)
	}
	defer func() {
		if err := metricsSrv.Shutdown(); err != nil {
			diag.Warn(ctx, "metrics endpoint shutdown failed", "error", err)
		}
	}()

	svc := scenarioapp.NewService(infraconfig.NewYAMLLoader(diag), executor.NewFactory(diag), diag)
	scn, err := svc.Load(ctx, opts.ScenarioPath)
	if err != nil {
		return err
	}
	out = out.WithScenario(scn.Name)

	var bridge *engine.ConfirmBridge
	var prompter *confirmPrompter
	if !opts.NonInteractive {
		bridge = engine.NewConfirmBridge()
		prompter = newConfirmPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
	}

	publisher := events.NewChannelPublisher()
	board := scenario.NewStateBoard(*scn, scenario.DefaultLogLimit)
	observed := make(chan struct{})
	go func() {
		defer close(observed)
		observe(ctx, publisher.Events(), board, out, bridge, prompter)
	}()

	runner := engine.NewRunner(
		engine.WithLogger(diag),
		engine.WithEvents(publisher),
		engine.WithMetrics(collector),
		engine.WithConfirmBridge(bridge),
		engine.WithMaxParallel(opts.MaxParallel),
	)

	outcome, runErr := svc.Run(ctx, scenarioapp.RunRequest{
		Scenario:    scn,
		Overrides:   overrides,
		DefaultKind: scenario.DbKind(opts.DBExecutor),
		DefaultDSN:  opts.DBDSN,
		Runner:      runner,
	})
	publisher.Close()
	<-observed

	if runErr != nil {
		return runErr
	}

	printSummary(cmd.OutOrStdout(), outcome.Summary, board)
	if !outcome.Summary.Success() {
		diag.Error(ctx, "scenario failed", "error", outcome.Summary.Err())
		return errRunFailed
	}
	return nil
}

// observe renders every event and answers confirmation requests until the
// publisher is closed.
func observe(ctx context.Context, stream <-chan ports.DomainEvent, board *scenario.StateBoard, out *logger.Logger, bridge *engine.ConfirmBridge, prompter *confirmPrompter) {
	for ev := range stream {
		event, ok := ev.(scenario.Event)
		if !ok {
			continue
		}
		board.Apply(event)
		out.Event(event)

		req, ok := event.(scenario.RequestConfirm)
		if !ok || bridge == nil || prompter == nil {
			continue
		}
		accepted, _ := prompter.Ask(ctx, req)
		bridge.Respond(req.RequestID, accepted)
	}
}

func printSummary(w io.Writer, summary engine.Summary, board *scenario.StateBoard) {
	status := "succeeded"
	switch {
	case summary.Cancelled:
		status = "cancelled"
	case summary.Failed > 0:
		status = "failed"
	}
	fmt.Fprintf(w, "\nrun %s %s: %d succeeded, %d failed\n", summary.RunID, status, summary.Succeeded, summary.Failed)

	for _, id := range scenarioapp.FailedSteps(summary) {
		fmt.Fprintf(w, "  %s: %s\n", id, summary.Reasons[id])
		state, ok := board.State(id)
		if !ok {
			continue
		}
		for i := len(state.Logs) - 1; i >= 0; i-- {
			if !strings.Contains(state.Logs[i], summary.Reasons[id]) {
				fmt.Fprintf(w, "    last output: %s\n", state.Logs[i])
				break
			}
		}
	}
}
