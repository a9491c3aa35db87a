package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/periop-sync/internal/config"
	"github.com/JonMunkholm/periop-sync/internal/core"
	_ "github.com/JonMunkholm/periop-sync/internal/core/entities" // Register all entities
	"github.com/JonMunkholm/periop-sync/internal/logging"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err == nil {
		slog.Debug("loaded .env file (overwriting existing env vars)")
	}

	rootCmd := &cobra.Command{
		Use:           "periop-sync",
		Short:         "Synchronize the perioperative workbook into the relational store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(validateIDCmd())

	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError reports a fatal error, with the support hint when one applies.
func printError(w io.Writer, err error) {
	fmt.Fprintln(w, "error:", err)
	if core.IsUserFacing(err) {
		fmt.Fprintln(w, core.FormatUserError(err))
	}
}

// loadConfig reads the environment, lets apply override it from flags,
// then validates the result and configures logging.
func loadConfig(apply func(*config.Config)) (*config.Config, error) {
	cfg, err := config.LoadUnvalidated()
	if err != nil {
		return nil, err
	}
	if apply != nil {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	if cfg.Logging.File != "" {
		logging.Setup(cfg.Logging.Level, cfg.Logging.Format,
			logging.RotatingFile(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups, cfg.Logging.MaxAgeDays))
	} else {
		logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	}

	slog.Debug("configuration loaded", "config", cfg.String())
	return cfg, nil
}
