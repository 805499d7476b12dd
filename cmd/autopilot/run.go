package main

import (
	"context"
	"os"

	"github.com/aretw0/autopilot/internal/cli"
	"github.com/aretw0/autopilot/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [unit...]",
	Short: "Run units in the foreground",
	Long: `Runs the named units one after another, or every unit in order with --all.
Ctrl+C requests a cooperative stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		loop, _ := cmd.Flags().GetBool("loop")
		speed, _ := cmd.Flags().GetFloat64("speed")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		quiet, _ := cmd.Flags().GetBool("quiet")

		app, err := newApp(cmd, cli.AppOptions{DryRun: dryRun})
		if err != nil {
			return err
		}
		defer app.Close()

		interactive := tui.IsTerminal() && !quiet
		if interactive {
			tui.PrintBanner(os.Stdout)
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		err = cli.Run(ctx, app, cli.RunOptions{
			Units:  args,
			All:    all,
			Loop:   loop,
			Speed:  speed,
			Output: os.Stdout,
			Live:   !quiet,
			Report: !quiet,
		})
		if sig := ctx.Signal(); sig != nil {
			app.Logger.Info("Run interrupted", "signal", sig.String())
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("all", false, "Run every unit in order")
	runCmd.Flags().Bool("loop", false, "Repeat until interrupted")
	runCmd.Flags().Float64("speed", 1.0, "Speed factor; below 1 adds a pause per node")
	runCmd.Flags().Bool("dry-run", false, "Use the simulated actuator regardless of configuration")
	runCmd.Flags().BoolP("quiet", "q", false, "Print nothing but errors")
}
