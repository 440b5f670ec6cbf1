// Package tracker is the Jira REST v2 client: ticket snapshots, linked pull
// requests, acceptance-criteria extraction and issue creation.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"

	"devhelper/internal/logging"
	"devhelper/internal/types"
)

// ErrCredentials is returned when host, email or API token is missing.
var ErrCredentials = errors.New("missing JIRA credentials: set JIRA_HOST, JIRA_EMAIL and JIRA_API_TOKEN")

// Config holds configuration for the Jira client.
type Config struct {
	Host          string // "acme.atlassian.net" or a full base URL
	Email         string
	APIToken      string
	CriteriaField string
	Timeout       time.Duration
}

// Client talks to Jira over REST v2 with basic auth.
type Client struct {
	baseURL       string
	criteriaField string
	configured    bool
	jira          *jira.Client
	initErr       error
}

// NewClient creates a Jira client. Hosts without a scheme use https.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	base := strings.TrimRight(cfg.Host, "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "https://" + base
	}

	tp := jira.BasicAuthTransport{Username: cfg.Email, Password: cfg.APIToken}
	httpClient := tp.Client()
	httpClient.Timeout = cfg.Timeout

	c := &Client{
		baseURL:       base,
		criteriaField: cfg.CriteriaField,
		configured:    base != "" && cfg.Email != "" && cfg.APIToken != "",
	}
	c.jira, c.initErr = jira.NewClient(httpClient, base)
	return c
}

func (c *Client) ready() error {
	if !c.configured {
		return ErrCredentials
	}
	if c.initErr != nil {
		return fmt.Errorf("invalid JIRA host %q: %w", c.baseURL, c.initErr)
	}
	return nil
}

// FetchTicket loads one issue and its remote links.
func (c *Client) FetchTicket(ctx context.Context, id string) (*types.Ticket, error) {
	ticket, err := c.fetchTicket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JIRA ticket %s: %w", id, err)
	}
	return ticket, nil
}

func (c *Client) fetchTicket(ctx context.Context, id string) (*types.Ticket, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	start := time.Now()
	logging.TrackerDebug("GET issue %s", id)
	issue, resp, err := c.jira.Issue.GetWithContext(ctx, url.PathEscape(id), &jira.GetQueryOptions{Expand: "issuelinks,remotelinks"})
	if err != nil {
		return nil, toAPIError(resp, err)
	}

	// Remote links are best effort.
	var remote []jira.RemoteLink
	links, resp, err := c.jira.Issue.GetRemoteLinksWithContext(ctx, url.PathEscape(id))
	switch {
	case err != nil:
		logging.TrackerWarn("Remote links for %s unavailable: %v", id, toAPIError(resp, err))
	case links != nil:
		remote = *links
	}

	f, raw := issueFields(issue)
	ticket := &types.Ticket{
		Key:                issue.Key,
		Summary:            f.Summary,
		Description:        orDefault(raw.Description(), "No description provided"),
		AcceptanceCriteria: ExtractAcceptanceCriteria(raw, c.criteriaField),
		Status:             "Unknown",
		Priority:           "Unknown",
		IssueType:          orDefault(f.Type.Name, "Unknown"),
		LinkedPRs:          linkedPRs(remote, f.Description),
	}
	if f.Status != nil {
		ticket.Status = orDefault(f.Status.Name, "Unknown")
	}
	if f.Priority != nil {
		ticket.Priority = orDefault(f.Priority.Name, "Unknown")
	}
	if f.Assignee != nil {
		ticket.Assignee = f.Assignee.DisplayName
	}

	logging.Tracker("Fetched %s in %v (criteria=%v, prs=%d)", ticket.Key, time.Since(start), HasCriteria(ticket.AcceptanceCriteria), len(ticket.LinkedPRs))
	return ticket, nil
}

// issueFields returns the typed fields and a RawFields view holding the
// custom fields plus summary and description.
func issueFields(issue *jira.Issue) (*jira.IssueFields, RawFields) {
	f := issue.Fields
	if f == nil {
		f = &jira.IssueFields{}
	}
	raw := RawFields{}
	for k, v := range f.Unknowns {
		raw[k] = v
	}
	raw["summary"] = f.Summary
	raw["description"] = f.Description
	return f, raw
}

// LinkedPRs returns the pull request URLs linked to a ticket.
func (c *Client) LinkedPRs(ctx context.Context, id string) ([]string, error) {
	ticket, err := c.fetchTicket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get linked PRs for %s: %w", id, err)
	}
	return ticket.LinkedPRs, nil
}

// CreateIssue posts a drafted issue payload ({"fields": {...}}) and returns
// Jira's response, which carries the new key. The payload is sent as drafted,
// custom fields included, so it bypasses the typed jira.Issue.
func (c *Client) CreateIssue(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error) {
	if err := c.ready(); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}
	req, err := c.jira.NewRequestWithContext(ctx, http.MethodPost, "rest/api/2/issue", payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	logging.TrackerDebug("POST issue")
	var out map[string]interface{}
	resp, err := c.jira.Do(req, &out)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", toAPIError(resp, jira.NewJiraError(resp, err)))
	}
	key, _ := out["key"].(string)
	logging.Tracker("Created issue %s", key)
	return out, nil
}

// APIError is a non-2xx Jira response.
type APIError struct {
	StatusCode    int
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

func (e *APIError) Error() string {
	var parts []string
	parts = append(parts, e.ErrorMessages...)
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		parts = append(parts, field+": "+e.Errors[field])
	}
	if len(parts) == 0 {
		return fmt.Sprintf("JIRA returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("JIRA returned status %d: %s", e.StatusCode, strings.Join(parts, "; "))
}

// toAPIError turns a non-2xx go-jira failure into an APIError. Transport
// and decoding failures are returned unchanged.
func toAPIError(resp *jira.Response, err error) error {
	if resp == nil || resp.Response == nil || resp.StatusCode < 300 {
		return err
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var jerr *jira.Error
	if errors.As(err, &jerr) {
		apiErr.ErrorMessages = jerr.ErrorMessages
		apiErr.Errors = jerr.Errors
	}
	return apiErr
}
