package main

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/coreflow/coreflow/internal/model"
)

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var workflowID int64
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past executions for a workflow",
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
				if status != "" && string(e.Status) != status {
					continue
				}
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
	cmd.Flags().StringVar(&status, "status", "", "filter by status ("+string(model.StatusSuccess)+", "+string(model.StatusFailed)+", ...)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of executions to show")
	return cmd
}
