/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/friendsincode/recruitd/internal/workflow"
)

var catalogueFile string

var catalogueCmd = &cobra.Command{
	Use:   "catalogue",
	Short: "Validate and print the hiring pipeline stage graph",
	Long: `Load a workflow catalogue, validate it and print every stage with its actions.

Examples:
  # Print the built-in catalogue
  recruitd catalogue

  # Check a custom catalogue before deploying it
  recruitd catalogue --file ./stages.yaml
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogue, err := workflow.Load(catalogueFile)
		if err != nil {
			return err
		}
		return printCatalogue(cmd.OutOrStdout(), catalogue)
	},
}

func init() {
	catalogueCmd.Flags().StringVarP(&catalogueFile, "file", "f", "", "Catalogue YAML file (default: built-in)")
	rootCmd.AddCommand(catalogueCmd)
}

func printCatalogue(out io.Writer, catalogue *workflow.Catalogue) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tACTION\tNEXT\tREQUIRES")
	for _, stage := range catalogue.Stages() {
		if len(stage.Actions) == 0 {
			fmt.Fprintf(tw, "%s\t-\t(terminal)\t\n", stage.ID)
			continue
		}
		for _, action := range stage.Actions {
			next := string(action.Next)
			if next == "" {
				next = string(stage.ID)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", stage.ID, action.ID, next, action.Requires)
		}
	}
	return tw.Flush()
}
