package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"devhelper/internal/review"
)

var prCmd = &cobra.Command{
	Use:   "pr",
	Short: "Pull request review",
}

// prAnalyzeCmd reviews the PRs of a ticket
var prAnalyzeCmd = &cobra.Command{
	Use:   "analyze [ticket] [pr-url...]",
	Short: "Review the pull requests of a ticket",
	Long: `Reviews each pull request with the configured review model, validating it
against the ticket's acceptance criteria. Without PR URLs, the PRs linked to
the ticket are used.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var urls []string
	if len(args) > 1 {
		urls = review.SplitPRURLs(strings.Join(args[1:], "\n"))
	}
	report, err := a.analyzer.Analyze(ctx, args[0], urls)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(report.Ticket.Key+" "+report.Ticket.Summary))
	for _, r := range report.Results {
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%s/%s#%d %s (%d files)", r.PRInfo.Owner, r.PRInfo.Repo, r.PRInfo.Number, r.PRInfo.Title, r.FilesCount)))
		printMarkdown(out, r.Analysis)
	}
	return nil
}
