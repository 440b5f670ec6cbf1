// Package ticketgen drafts issue-tracker tickets from a task description
// with a language model and optionally files them.
package ticketgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"devhelper/internal/llm"
	"devhelper/internal/logging"
	"devhelper/internal/types"
)

var (
	// ErrMissingDescription is returned for an empty task description.
	ErrMissingDescription = errors.New("task description is required")
	// ErrEmptyDraft is returned when the model answers with nothing.
	ErrEmptyDraft = errors.New("model returned no ticket content")
)

const (
	draftMaxTokens   = 1000
	draftTemperature = 0
)

// Options fixes the tracker values every draft must carry.
type Options struct {
	ProjectID     string
	IssueTypeID   string
	Labels        []string
	CriteriaField string
}

// DefaultOptions returns the values used when none are configured.
func DefaultOptions() Options {
	return Options{
		ProjectID:     "10000",
		IssueTypeID:   "10000",
		Labels:        []string{"automation"},
		CriteriaField: "customfield_10115",
	}
}

// Drafter turns task descriptions into ticket payloads.
type Drafter struct {
	client  types.LLMClient
	creator types.IssueCreator
	opts    Options
}

// NewDrafter wires a drafter. creator may be nil when only drafting is
// needed; zero-valued options fall back to DefaultOptions.
func NewDrafter(client types.LLMClient, creator types.IssueCreator, opts Options) *Drafter {
	def := DefaultOptions()
	if opts.ProjectID == "" {
		opts.ProjectID = def.ProjectID
	}
	if opts.IssueTypeID == "" {
		opts.IssueTypeID = def.IssueTypeID
	}
	if len(opts.Labels) == 0 {
		opts.Labels = def.Labels
	}
	if opts.CriteriaField == "" {
		opts.CriteriaField = def.CriteriaField
	}
	return &Drafter{client: client, creator: creator, opts: opts}
}

// Draft asks the model for a ticket payload and decodes it.
func (d *Drafter) Draft(ctx context.Context, taskDescription string) (map[string]any, error) {
	if strings.TrimSpace(taskDescription) == "" {
		return nil, ErrMissingDescription
	}

	raw, err := d.client.CompleteChat(ctx, types.ChatRequest{
		System:      draftSystemPrompt,
		Messages:    []types.Message{{Role: types.RoleUser, Content: draftUserPrompt(taskDescription, d.opts)}},
		MaxTokens:   draftMaxTokens,
		Temperature: types.Temperature(draftTemperature),
	})
	if err != nil {
		return nil, fmt.Errorf("error generating AI content: %w", err)
	}

	content, err := DecodeDraft(raw)
	if err != nil {
		logging.TicketDebug("Undecodable draft output (%d bytes): %s", len(raw), raw)
		return nil, fmt.Errorf("error generating AI content: %w", err)
	}
	logging.Ticket("Drafted ticket %q", summaryOf(content))
	return content, nil
}

// Submit files a drafted payload with the tracker.
func (d *Drafter) Submit(ctx context.Context, content map[string]any) (map[string]any, error) {
	if d.creator == nil {
		return nil, errors.New("ticket creation is not configured")
	}
	resp, err := d.creator.CreateIssue(ctx, content)
	if err != nil {
		return nil, err
	}
	logging.Ticket("Created ticket %v", resp["key"])
	return resp, nil
}

// Created is the outcome of drafting and filing a ticket.
type Created struct {
	TicketContent map[string]any `json:"ticketContent"`
	JiraResponse  map[string]any `json:"jiraResponse"`
}

// Create drafts a ticket then files it.
func (d *Drafter) Create(ctx context.Context, taskDescription string) (*Created, error) {
	content, err := d.Draft(ctx, taskDescription)
	if err != nil {
		return nil, err
	}
	resp, err := d.Submit(ctx, content)
	if err != nil {
		return nil, err
	}
	return &Created{TicketContent: content, JiraResponse: resp}, nil
}

// DecodeDraft parses model output as a JSON object. When the whole reply is
// not JSON, the first '{' to last '}' span is tried.
func DecodeDraft(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyDraft
	}

	var content map[string]any
	if err := json.Unmarshal([]byte(raw), &content); err == nil && content != nil {
		return content, nil
	}

	span := llm.ExtractJSON(raw)
	if span == "" {
		return nil, fmt.Errorf("no JSON object in model reply")
	}
	content = nil
	if err := json.Unmarshal([]byte(span), &content); err != nil {
		return nil, fmt.Errorf("invalid ticket JSON: %w", err)
	}
	if content == nil {
		return nil, ErrEmptyDraft
	}
	return content, nil
}

// summaryOf finds the summary either at the top level or under "fields".
func summaryOf(content map[string]any) string {
	if s, ok := content["summary"].(string); ok {
		return s
	}
	if fields, ok := content["fields"].(map[string]any); ok {
		s, _ := fields["summary"].(string)
		return s
	}
	return ""
}
