package main

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newStatusCmd(flags *globalFlags) *cobra.Command {
	var workflowID int64
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the most recent execution status for a workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := flags.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			executions, err := store.GetExecutionHistory(cmd.Context(), workflowID, limit)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Execution ID", "Status", "Started", "Ended"})
			for _, e := range executions {
				ended := "-"
				if e.EndedAt != nil {
					ended = e.EndedAt.Format("2006-01-02 15:04:05")
				}
				t.AppendRow(table.Row{e.ID, e.Status, e.StartedAt.Format("2006-01-02 15:04:05"), ended})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().Int64Var(&workflowID, "workflow", 0, "workflow ID")
	cmd.Flags().IntVar(&limit, "limit", 1, "number of recent executions to show")
	return cmd
}
