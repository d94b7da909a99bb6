package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"cascade-sim/internal/config"
	"cascade-sim/internal/logging"
)

var (
	rootConfigPath string
	rootSchemaPath string
	rootLogLevel   string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cascade-sim",
	Short: "Cascading failure simulation engine",
	Long:  "cascade-sim forecasts how failures propagate through an infrastructure dependency graph using Monte Carlo simulation.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(rootConfigPath, rootSchemaPath)
		if err != nil {
			return err
		}
		if rootLogLevel != "" {
			c.Log.Level = rootLogLevel
		}
		cfg = c
		logger = logging.NewWithLevel(cfg.Log.Level, os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Path to service configuration YAML (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&rootSchemaPath, "schema", "", "Path to CUE schema overriding the embedded one")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(scenariosCmd)
}
