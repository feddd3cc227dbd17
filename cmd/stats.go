package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/coreflow/coreflow/internal/model"
)

func newStatsCmd(flags *globalFlags) *cobra.Command {
	var workflowID int64

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show success/failure statistics for a workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := flags.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			executions, err := store.GetExecutionHistory(cmd.Context(), workflowID, 0)
			if err != nil {
				return err
			}

			stats := computeStatistics(executions)
			fmt.Fprintf(cmd.OutOrStdout(), "total runs:       %d\n", stats.TotalRuns)
			fmt.Fprintf(cmd.OutOrStdout(), "succeeded:        %d\n", stats.SuccessCount)
			fmt.Fprintf(cmd.OutOrStdout(), "failed:           %d\n", stats.FailureCount)
			fmt.Fprintf(cmd.OutOrStdout(), "success rate:     %.1f%%\n", stats.SuccessRate*100)
			fmt.Fprintf(cmd.OutOrStdout(), "average duration: %s\n", stats.AverageDuration)
			fmt.Fprintf(cmd.OutOrStdout(), "runs in last 24h: %d\n", stats.Last24hRuns)
			return nil
		},
	}
	cmd.Flags().Int64Var(&workflowID, "workflow", 0, "workflow ID")
	_ = cmd.MarkFlagRequired("workflow")
	return cmd
}

// computeStatistics rolls a set of executions up into a WorkflowStatistics
// projection, bucketing by terminal status and elapsed time.
func computeStatistics(executions []model.Execution) model.WorkflowStatistics {
	var stats model.WorkflowStatistics
	stats.TotalRuns = len(executions)

	var totalDuration time.Duration
	var durationCount int
	dayAgo := time.Now().UTC().Add(-24 * time.Hour)

	for _, e := range executions {
		switch e.Status {
		case model.StatusSuccess:
			stats.SuccessCount++
		case model.StatusFailed:
			stats.FailureCount++
		}
		if e.EndedAt != nil {
			totalDuration += e.EndedAt.Sub(e.StartedAt)
			durationCount++
		}
		if e.StartedAt.After(dayAgo) {
			stats.Last24hRuns++
		}
	}

	if stats.TotalRuns > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalRuns)
	}
	if durationCount > 0 {
		stats.AverageDuration = totalDuration / time.Duration(durationCount)
	}
	return stats
}
