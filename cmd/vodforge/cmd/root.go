// Package cmd implements the CLI commands for vodforge.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vodforge/vodforge/internal/config"
	"github.com/vodforge/vodforge/internal/observability"
	"github.com/vodforge/vodforge/internal/version"
)

// cfgFile holds the config file path from the CLI flag.
var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "vodforge",
	Short:   "Media transcoding job orchestrator",
	Version: version.Short(),
	Long: `vodforge accepts media conversion requests over HTTP, runs each
conversion through a download, probe, encode, subtitle, thumbnail, and HLS
packaging pipeline, and uploads the packaged output to S3-compatible storage.

Jobs are persisted in an embedded SQLite database and processed by a bounded
worker pool, with each conversion optionally isolated in its own OS process.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	// Global flags. These are NOT bound to viper; loadConfig checks whether
	// they were explicitly set with Changed() and only then overrides the
	// config/env values. This preserves the priority:
	// CLI flag > env var > config > default.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., ./configs, /etc/vodforge, $HOME/.vodforge)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (text, json)")
}

// loadConfig reads the effective configuration and applies any explicitly
// set global flags on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := rootCmd.PersistentFlags()
	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		cfg.Logging.Level = strings.ToLower(level)
	}
	if flags.Changed("log-format") {
		format, _ := flags.GetString("log-format")
		cfg.Logging.Format = strings.ToLower(format)
	}

	// Handle "warning" as an alias for "warn".
	if cfg.Logging.Level == "warning" {
		cfg.Logging.Level = "warn"
	}

	return cfg, nil
}

// initLogging installs the process-wide slog logger. The observability
// package applies sensitive data redaction to every record.
func initLogging(cfg *config.Config) {
	logger := observability.NewLoggerWithWriter(cfg.Logging, os.Stderr)
	observability.SetDefault(logger)
}
