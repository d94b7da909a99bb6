package main

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cascade-sim/internal/scenario"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List built-in scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		builtins := scenario.BuiltIn()
		names := make([]string, 0, len(builtins))
		for name := range builtins {
			names = append(names, name)
		}
		slices.Sort(names)

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "NAME\tEVENT\tSEVERITY\tSEEDS\tDESCRIPTION\n")
		for _, name := range names {
			sc := builtins[name]
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n", name, sc.EventType, sc.EventSeverity, strings.Join(sc.InitialFailureNodes, ","), sc.Name)
		}
		return tw.Flush()
	},
}
