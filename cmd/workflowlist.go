package main

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newWorkflowCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Workflow registration commands",
	}
	cmd.AddCommand(newWorkflowListCmd(flags))
	return cmd
}

func newWorkflowListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every registered workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := flags.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			summaries, err := store.ListWorkflowSummaries(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"ID", "Name", "Schedule", "Last Status", "Last Run", "Total Runs"})
			for _, sum := range summaries {
				lastRun := "-"
				if sum.LastRunAt != nil {
					lastRun = sum.LastRunAt.Format("2006-01-02 15:04:05")
				}
				schedule := sum.Workflow.Schedule
				if schedule == "" {
					schedule = "-"
				}
				t.AppendRow(table.Row{sum.Workflow.ID, sum.Workflow.Name, schedule, sum.LastStatus, lastRun, sum.TotalRuns})
			}
			t.Render()
			return nil
		},
	}
}
