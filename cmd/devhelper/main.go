package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"devhelper/internal/config"
	"devhelper/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	timeout    time.Duration

	// Loaded in PersistentPreRunE
	cfg *config.Config

	version = "dev"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "devhelper",
	Short: "devhelper - ticket-driven QA, PR review and ticket drafting",
	Long: `devhelper is a small developer-productivity backend.

It fetches issue-tracker tickets, turns their acceptance criteria into
browser test scenarios and runs them, reviews the pull requests linked to a
ticket, and drafts new tickets from a task description or a chat.

Run "devhelper serve" to start the HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logCfg := logging.Config{
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			File:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Categories: cfg.Logging.Categories,
		}
		if verbose {
			logCfg.Level = "debug"
		}
		if err := logging.Initialize(logCfg); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "devhelper.yaml", "Config file (missing file uses defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Operation timeout for one-shot commands")

	qaCmd.AddCommand(qaRunCmd)
	prCmd.AddCommand(prAnalyzeCmd)
	ticketCmd.AddCommand(ticketDraftCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(qaCmd)
	rootCmd.AddCommand(prCmd)
	rootCmd.AddCommand(ticketCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the devhelper version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cfg.Name, version)
	},
}
