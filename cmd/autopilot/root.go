package main

import (
	"fmt"
	"os"

	"github.com/aretw0/autopilot/internal/cli"
	"github.com/aretw0/autopilot/pkg/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "autopilot",
	Short: "Autopilot runs desktop automation graphs",
	Long: `Autopilot executes units: graphs of pointer, keyboard, wait and image-search
actions. Units are YAML or JSON files in the units directory.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultPath, "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().String("dir", "", "Directory containing unit files (overrides units_dir)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("store", "", "Status store backend: memory, file, redis")
	rootCmd.PersistentFlags().String("redis-addr", "", "Redis address for the redis store")
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if cmd.Flags().Changed("dir") {
		cfg.UnitsDir, _ = cmd.Flags().GetString("dir")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("store") {
		cfg.Store.Backend, _ = cmd.Flags().GetString("store")
	}
	if cmd.Flags().Changed("redis-addr") {
		cfg.Store.Redis.Addr, _ = cmd.Flags().GetString("redis-addr")
	}
	return cfg, cfg.Validate()
}

// newApp loads configuration and assembles the application.
func newApp(cmd *cobra.Command, opts cli.AppOptions) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.NewApp(cfg, opts)
}
