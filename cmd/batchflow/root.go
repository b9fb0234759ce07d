package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	logLevel string
	jsonLogs bool
}

func (f *rootFlags) humanReadable() bool {
	return !f.jsonLogs
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "batchflow",
		Short:         "batchflow runs SQL and shell batch scenarios declared in YAML",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&flags.jsonLogs, "json-logs", false, "Write logs as JSON instead of console output")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newValidateCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
