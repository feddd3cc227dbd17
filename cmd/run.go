package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreflow/coreflow/internal/config"
	"github.com/coreflow/coreflow/internal/engine"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a workflow definition to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := config.ParseFile(args[0])
			if err != nil {
				return err
			}

			store, err := flags.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if _, err := store.RecoverFromCrash(cmd.Context()); err != nil {
				return err
			}

			eng := engine.New(flags.buildLogger(), store)
			executionID, ok, err := eng.Execute(cmd.Context(), wf)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "execution %s: ", executionID)
			if ok {
				fmt.Fprintln(cmd.OutOrStdout(), "success")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "failed")
			return fmt.Errorf("workflow %q failed", wf.Name)
		},
	}
	return cmd
}
