package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"calkit/internal/config"
	appLog "calkit/internal/log"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "calkit",
	Short: "calkit - scheduling core with a plugin registry",
	Long:  "calkit computes scheduling time slots and hosts export, data-source, theme and view plugins behind a small HTTP API.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		appLog.SetLevel(appLog.ParseLevel(logLevel))
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/etc/calkit/config.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it).
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	appLog.Info("effective config",
		"config_path", configPath,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"refresh", cfg.RefreshCron,
		"horizon_days", cfg.HorizonDays,
		"ics_count", len(cfg.ICS),
		"plugin_overrides", len(cfg.Plugins),
	)
	return cfg, nil
}
