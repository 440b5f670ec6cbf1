package main

import (
	"context"

	"github.com/spf13/cobra"
)

var qaCmd = &cobra.Command{
	Use:   "qa",
	Short: "Ticket-driven browser tests",
}

// qaRunCmd runs one QA pass from the terminal
var qaRunCmd = &cobra.Command{
	Use:   "run [ticket] [portal-url]",
	Short: "Run a ticket's acceptance criteria against a portal",
	Long: `Fetches the ticket, turns its acceptance criteria into test scenarios,
executes them in a headless browser and prints the report.

Example:
  devhelper qa run QA-123 https://staging.example.com/home`,
	Args: cobra.ExactArgs(2),
	RunE: runQA,
}

func runQA(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.runner.Run(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printRunSummary(out, run)
	printMarkdown(out, run.Report)
	return nil
}
