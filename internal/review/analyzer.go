// Package review asks a language model to review the pull requests linked
// to a ticket, validating them against the ticket's acceptance criteria.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"devhelper/internal/logging"
	"devhelper/internal/scm"
	"devhelper/internal/tracker"
	"devhelper/internal/types"
)

var (
	// ErrMissingTicket is returned when no ticket id is given.
	ErrMissingTicket = errors.New("missing ticketId")
	// ErrNoPullRequests is returned when neither the caller nor the ticket names a PR.
	ErrNoPullRequests = errors.New("no PRs found. Please provide PR URLs or link PRs to the JIRA ticket")
)

const (
	// MaxChangesBytes caps the diff text sent to the model.
	MaxChangesBytes    = 50000
	defaultConcurrency = 4
)

// PRSource loads a pull request and its files.
type PRSource interface {
	PullRequest(ctx context.Context, ref scm.PRRef) (*scm.PullRequest, error)
}

// PRInfo identifies the reviewed pull request.
type PRInfo struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

// Result is the review of one pull request.
type Result struct {
	PRInfo     PRInfo `json:"prInfo"`
	FilesCount int    `json:"filesCount"`
	Analysis   string `json:"analysis"`
}

// Report is the outcome of one analysis request.
type Report struct {
	Ticket  *types.Ticket `json:"jiraTicket"`
	Results []Result      `json:"results"`
}

// Analyzer reviews pull requests. Safe for concurrent use.
type Analyzer struct {
	tickets     types.TicketFetcher
	prs         PRSource
	client      types.LLMClient
	concurrency int
}

// NewAnalyzer wires an analyzer. concurrency bounds parallel PR reviews;
// zero or less uses a default.
func NewAnalyzer(tickets types.TicketFetcher, prs PRSource, client types.LLMClient, concurrency int) *Analyzer {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Analyzer{tickets: tickets, prs: prs, client: client, concurrency: concurrency}
}

// SplitPRURLs splits a newline- or comma-separated list of URLs. The result
// is non-nil so an explicit but empty list stays distinguishable from none.
func SplitPRURLs(s string) []string {
	out := []string{}
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == ',' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Analyze fetches the ticket and reviews each pull request. A nil prURLs
// uses the PRs linked to the ticket. URLs that are not GitHub pull requests
// are skipped. Results keep the order of the URLs.
func (a *Analyzer) Analyze(ctx context.Context, ticketID string, prURLs []string) (*Report, error) {
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return nil, ErrMissingTicket
	}
	if key := tracker.ExtractTicketID(ticketID); key != "" {
		ticketID = key
	}

	ticket, err := a.tickets.FetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if prURLs == nil {
		prURLs = ticket.LinkedPRs
		logging.Review("Auto-detected %d linked PRs on %s", len(prURLs), ticket.Key)
	}
	if len(prURLs) == 0 {
		return nil, ErrNoPullRequests
	}

	var refs []scm.PRRef
	for _, u := range prURLs {
		ref, ok := scm.ParsePRURL(u)
		if !ok {
			logging.ReviewDebug("Skipping non-PR URL %q", u)
			continue
		}
		refs = append(refs, ref)
	}

	results := make([]Result, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			r, err := a.reviewOne(gctx, ref, ticket)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Report{Ticket: ticket, Results: results}, nil
}

func (a *Analyzer) reviewOne(ctx context.Context, ref scm.PRRef, ticket *types.Ticket) (Result, error) {
	start := time.Now()
	pr, err := a.prs.PullRequest(ctx, ref)
	if err != nil {
		return Result{}, err
	}

	criteria := ""
	if tracker.HasCriteria(ticket.AcceptanceCriteria) {
		criteria = ticket.AcceptanceCriteria
	}
	prompt := reviewUserPrompt(pr.Title, len(pr.Files), criteria, Truncate(pr.Changes(), MaxChangesBytes))

	analysis, err := a.client.CompleteWithSystem(ctx, reviewSystemPrompt, prompt, reviewMaxTokens)
	if err != nil {
		return Result{}, fmt.Errorf("analyze PR %s/%s#%d: %w", ref.Owner, ref.Repo, ref.Number, err)
	}

	logging.Review("Reviewed %s/%s#%d (%d files) in %v", ref.Owner, ref.Repo, ref.Number, len(pr.Files), time.Since(start))
	return Result{
		PRInfo: PRInfo{
			Owner:  ref.Owner,
			Repo:   ref.Repo,
			Number: ref.Number,
			Title:  pr.Title,
			URL:    ref.URL,
		},
		FilesCount: len(pr.Files),
		Analysis:   analysis,
	}, nil
}

// Truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
