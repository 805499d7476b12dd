package main

import (
	"fmt"

	"github.com/aretw0/autopilot/internal/cli"
	"github.com/aretw0/autopilot/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <unit>",
	Short: "Export a unit graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the unit, highlighting the node in flight when a shared store reports one.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd, cli.AppOptions{DryRun: true})
		if err != nil {
			return err
		}
		defer app.Close()

		u, err := app.Autopilot.Unit(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		var overlay *graph.GraphOverlay
		if st, err := app.Autopilot.UnitStatus(cmd.Context(), u.ID); err == nil && st.CurrentNode != "" {
			overlay = &graph.GraphOverlay{CurrentNode: st.CurrentNode}
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(u, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
