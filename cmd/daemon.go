package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coreflow/coreflow/internal/config"
	"github.com/coreflow/coreflow/internal/cron"
	"github.com/coreflow/coreflow/internal/daemon"
	"github.com/coreflow/coreflow/internal/engine"
	"github.com/coreflow/coreflow/internal/metrics"
	"github.com/coreflow/coreflow/internal/model"
)

func newDaemonCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run coreflow as a background cron-driven daemon",
	}
	cmd.AddCommand(newDaemonStartCmd(flags), newDaemonStopCmd(), newDaemonStatusCmd())
	return cmd
}

func newDaemonStartCmd(flags *globalFlags) *cobra.Command {
	var pidFile string
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "start <file>",
		Short: "Start the daemon, registering the workflow's schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := config.ParseFile(args[0])
			if err != nil {
				return err
			}

			guard, err := daemon.Acquire(pidFile)
			if err != nil {
				return err
			}

			logger := flags.buildLogger()

			store, err := flags.openStore(cmd)
			if err != nil {
				guard.Release()
				return err
			}
			defer store.Close()

			if _, err := store.RecoverFromCrash(cmd.Context()); err != nil {
				guard.Release()
				return err
			}

			workflowRow, err := store.GetOrCreateWorkflow(cmd.Context(), wf.Name, wf.Schedule)
			if err != nil {
				guard.Release()
				return err
			}
			if pruned, err := store.PruneExecutions(cmd.Context(), workflowRow.ID); err != nil {
				logger.Warn("retention pruning failed", "workflow", wf.Name, "error", err)
			} else if pruned > 0 {
				logger.Info("pruned executions outside retention policy", "workflow", wf.Name, "count", pruned)
			}

			eng := engine.New(logger, store)
			collector := metrics.New()

			runtime := cron.New(logger, func(ctx context.Context, wf *model.WorkflowConfig) {
				executionID, ok, err := eng.Execute(ctx, wf)
				status := "success"
				if err != nil || !ok {
					status = "failed"
				}
				collector.ExecutionsTotal.WithLabelValues(status).Inc()
				logger.Info("scheduled execution finished", "workflow", wf.Name, "execution_id", executionID, "status", status)
			})
			if err := runtime.AddWorkflow(wf); err != nil {
				guard.Release()
				return err
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", collector.Handler())
			metricsServer := &http.Server{Addr: metricsAddr, Handler: mux}
			go func() {
				if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("metrics server stopped", "error", err)
				}
			}()
			defer metricsServer.Close()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
			signal.Ignore(syscall.SIGHUP)
			daemon.Serve(cmd.Context(), logger, guard, runtime, sigCh)
			return nil
		},
	}
	cmd.Flags().StringVar(&pidFile, "pid-file", "coreflow.pid", "path to the daemon's PID file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve /metrics on")
	return cmd
}

func newDaemonStopCmd() *cobra.Command {
	var pidFile string
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := daemon.Stop(cmd.Context(), pidFile); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "stop signal sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&pidFile, "pid-file", "coreflow.pid", "path to the daemon's PID file")
	return cmd
}

func newDaemonStatusCmd() *cobra.Command {
	var pidFile string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), daemon.Describe(pidFile))
			return nil
		},
	}
	cmd.Flags().StringVar(&pidFile, "pid-file", "coreflow.pid", "path to the daemon's PID file")
	return cmd
}
