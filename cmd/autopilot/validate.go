package main

import (
	"fmt"

	"github.com/aretw0/autopilot/internal/validator"
	"github.com/aretw0/autopilot/pkg/adapters/file"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check unit files for consistency",
	Long:  `Loads every unit and reports structural errors (duplicate ids, bad boundaries) and warnings (dangling links, unreachable nodes).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		units, err := file.NewUnitRepository(cfg.UnitsDir).List(cmd.Context())
		if err != nil {
			return err
		}

		report := validator.ValidateAll(units)
		out := cmd.OutOrStdout()
		for _, issue := range report.Warnings() {
			fmt.Fprintln(out, issue)
		}
		for _, issue := range report.Errors() {
			fmt.Fprintln(out, issue)
		}
		if err := report.Err(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(out, "%d unit(s) valid! ✅\n", len(units))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
