package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogsCmd(flags *globalFlags) *cobra.Command {
	var workflowID int64
	var executionID string
	var task string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show captured stdout/stderr for a workflow execution's tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := flags.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if executionID == "" {
				history, err := store.GetExecutionHistory(cmd.Context(), workflowID, 1)
				if err != nil {
					return err
				}
				if len(history) == 0 {
					return fmt.Errorf("no executions found for workflow %d", workflowID)
				}
				executionID = history[0].ID
			}

			taskExecs, err := store.GetTaskExecutions(cmd.Context(), executionID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, te := range taskExecs {
				if task != "" && te.TaskName != task {
					continue
				}
				fmt.Fprintf(out, "=== %s (attempt %d, %s) ===\n", te.TaskName, te.Attempt, te.Status)
				if te.Stdout != "" {
					fmt.Fprintf(out, "--- stdout ---\n%s\n", te.Stdout)
				}
				if te.Stderr != "" {
					fmt.Fprintf(out, "--- stderr ---\n%s\n", te.Stderr)
				}
				if te.Truncated {
					fmt.Fprintln(out, "(output truncated)")
				}
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&workflowID, "workflow", 0, "workflow ID")
	cmd.Flags().StringVar(&executionID, "execution-id", "", "execution ID (defaults to the most recent)")
	cmd.Flags().StringVar(&task, "task", "", "filter to a single task's output")
	return cmd
}
