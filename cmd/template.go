package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/coreflow/coreflow/internal/templates"
)

func newTemplateCmd() *cobra.Command {
	var templateType string
	var outPath string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Print or list built-in workflow templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if templateType == "" {
				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"Name", "Description"})
				for _, info := range templates.List() {
					t.AppendRow(table.Row{info.Name, info.Description})
				}
				t.Render()
				return nil
			}

			yaml, ok := templates.Get(templateType)
			if !ok {
				return fmt.Errorf("unknown template type %q", templateType)
			}
			if outPath == "" {
				fmt.Fprint(cmd.OutOrStdout(), yaml)
				return nil
			}
			return os.WriteFile(outPath, []byte(yaml), 0o644)
		},
	}
	cmd.Flags().StringVar(&templateType, "type", "", "template type (minimal, shell, ssh, http, full); omit to list all")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write the template to a file instead of stdout")
	return cmd
}
