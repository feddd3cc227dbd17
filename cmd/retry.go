package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreflow/coreflow/internal/config"
	"github.com/coreflow/coreflow/internal/engine"
)

func newRetryCmd(flags *globalFlags) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "retry <file>",
		Short: "Re-run a workflow file as a new execution, after checking that the prior execution exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := flags.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			prior, err := store.GetExecution(cmd.Context(), runID)
			if err != nil {
				return fmt.Errorf("cannot retry %q: %w", runID, err)
			}

			wf, err := config.ParseFile(args[0])
			if err != nil {
				return err
			}

			eng := engine.New(flags.buildLogger(), store)
			executionID, ok, err := eng.Execute(cmd.Context(), wf)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "retried execution %s (original: %s), new execution %s: ", runID, prior.ID, executionID)
			if ok {
				fmt.Fprintln(cmd.OutOrStdout(), "success")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "failed")
			return fmt.Errorf("retry of workflow %q failed", wf.Name)
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "execution ID of the prior run to retry")
	_ = cmd.MarkFlagRequired("run-id")
	return cmd
}
