package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreflow/coreflow/internal/build"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the coreflow version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", build.AppName, build.Version)
			return nil
		},
	}
}
