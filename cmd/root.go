package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coreflow/coreflow/internal/logger"
	"github.com/coreflow/coreflow/internal/persistence"
)

type globalFlags struct {
	logLevel  string
	logFormat string
	dbPath    string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "coreflow",
		Short:         "A lightweight DAG workflow orchestrator for edge devices",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level (debug or info; any other value logs at info)")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "pretty", "log output format (json, pretty)")
	cmd.PersistentFlags().StringVar(&flags.dbPath, "db-path", "coreflow.db", "path to the state database")

	viper.SetEnvPrefix("coreflow")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("log-level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("db-path", cmd.PersistentFlags().Lookup("db-path"))

	cmd.AddCommand(
		newRunCmd(flags),
		newValidateCmd(),
		newStatusCmd(flags),
		newHistoryCmd(flags),
		newStatsCmd(flags),
		newLogsCmd(flags),
		newWorkflowCmd(flags),
		newRetryCmd(flags),
		newTemplateCmd(),
		newDaemonCmd(flags),
		newVersionCmd(),
	)

	return cmd
}

func (f *globalFlags) buildLogger() *slog.Logger {
	format := logger.FormatPretty
	if f.logFormat == "json" {
		format = logger.FormatJSON
	}
	return buildLogger(f.logLevel == "debug", format, false)
}

func (f *globalFlags) openStore(cmd *cobra.Command) (*persistence.Store, error) {
	return persistence.Open(cmd.Context(), f.dbPath)
}
