package main

import (
	"fmt"

	"github.com/aretw0/autopilot"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of autopilot",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "autopilot version %s\n", autopilot.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
