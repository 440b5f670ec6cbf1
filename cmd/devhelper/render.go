package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"devhelper/internal/qa"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// printRunSummary writes one line per scenario followed by the totals.
func printRunSummary(w io.Writer, run *qa.Run) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s %s", run.Ticket.Key, run.Ticket.Summary)))
	for _, r := range run.Results {
		mark := passStyle.Render("PASS")
		if !r.Passed {
			mark = failStyle.Render("FAIL")
		}
		line := fmt.Sprintf("%s  %-16s %s", mark, r.Action, r.Description)
		if r.Error != "" {
			line += dimStyle.Render("  (" + r.Error + ")")
		} else if !r.Passed {
			line += dimStyle.Render(fmt.Sprintf("  (expected %q, got %q)", r.Expected, r.Actual))
		}
		fmt.Fprintln(w, line)
	}

	total := fmt.Sprintf("%d/%d passed", run.Passed, run.Total)
	if run.AllPassed {
		fmt.Fprintln(w, passStyle.Render(total))
	} else {
		fmt.Fprintln(w, failStyle.Render(total))
	}
}

// printMarkdown renders md for the terminal, falling back to plain text.
func printMarkdown(w io.Writer, md string) {
	if strings.TrimSpace(md) == "" {
		return
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err == nil {
		if out, rerr := renderer.Render(md); rerr == nil {
			fmt.Fprint(w, out)
			return
		}
	}
	fmt.Fprintln(w, md)
}
