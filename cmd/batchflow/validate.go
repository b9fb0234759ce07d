package main

import (
	"fmt"

	"github.com/spf13/cobra"

	scenarioapp "github.com/alexisbeaulieu97/batchflow/internal/app/scenario"
	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
	"github.com/alexisbeaulieu97/batchflow/internal/executor"
	infraconfig "github.com/alexisbeaulieu97/batchflow/internal/infrastructure/config"
	"github.com/alexisbeaulieu97/batchflow/internal/infrastructure/logging"
)

func newValidateCmd(root *rootFlags) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "validate [scenario.yaml]",
		Short: "Check a scenario file without running it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && path == "" {
				path = args[0]
			}
			if err := validateScenarioPath(path); err != nil {
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

			svc := scenarioapp.NewService(infraconfig.NewYAMLLoader(diag), executor.NewFactory(diag), diag)
			if err := svc.Validate(cmd.Context(), path); err != nil {
				return err
			}
			scn, err := svc.Load(cmd.Context(), path)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "scenario %q is valid: %d steps, %d DB targets\n", scn.Name, countSteps(scn.Steps), len(scn.DBConnections))
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "scenario", "s", "", "Path to the scenario file")

	return cmd
}

// countSteps counts loop bodies as well as top-level steps.
func countSteps(steps []scenario.Step) int {
	n := len(steps)
	for _, step := range steps {
		if loop, ok := step.Kind.(scenario.Loop); ok {
			n += countSteps(loop.Steps)
		}
	}
	return n
}
