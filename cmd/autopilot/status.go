package main

import (
	"github.com/aretw0/autopilot/internal/cli"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the execution state of every unit",
	Long:  `Reads unit states from the configured store. Use a file or redis store to see runs owned by other processes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd, cli.AppOptions{DryRun: true})
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.Status(cmd.Context(), app, cmd.OutOrStdout())
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <unit...>",
	Short: "Request a stop of running units",
	Long:  `Sets the stop flag in the configured store; the process that owns each run stops after its current action.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd, cli.AppOptions{DryRun: true})
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.Stop(cmd.Context(), app, cmd.OutOrStdout(), args)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
}
