package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "AI-assisted ticket drafting",
}

var createTicket bool

// ticketDraftCmd drafts (and optionally files) a ticket
var ticketDraftCmd = &cobra.Command{
	Use:   "draft [task description]",
	Short: "Draft a ticket from a task description",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDraft,
}

func init() {
	ticketDraftCmd.Flags().BoolVar(&createTicket, "create", false, "File the drafted ticket")
}

func runDraft(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	task := strings.Join(args, " ")
	out := cmd.OutOrStdout()
	if !createTicket {
		content, err := a.drafter.Draft(ctx, task)
		if err != nil {
			return err
		}
		return printJSON(out, content)
	}

	created, err := a.drafter.Create(ctx, task)
	if err != nil {
		return err
	}
	if err := printJSON(out, created.TicketContent); err != nil {
		return err
	}
	fmt.Fprintln(out, passStyle.Render(fmt.Sprintf("Created %v", created.JiraResponse["key"])))
	return nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
