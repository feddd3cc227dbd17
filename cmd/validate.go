package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coreflow/coreflow/internal/config"
	"github.com/coreflow/coreflow/internal/digraph"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a workflow definition without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := config.ParseFile(args[0])
			if err != nil {
				return err
			}
			g, err := digraph.Build(wf.Tasks)
			if err != nil {
				return err
			}

			levels := g.ParallelLevels()
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "OK")
			fmt.Fprintf(cmd.OutOrStdout(), " workflow %q: %d tasks, %d parallel levels\n", wf.Name, len(wf.Tasks), len(levels))
			return nil
		},
	}
}
