package types

import (
	"context"
)

// LLMClient defines the interface for LLM interactions.
type LLMClient interface {
	// CompleteWithSystem sends one system instruction and one user message.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
	// CompleteChat sends a multi-turn conversation.
	CompleteChat(ctx context.Context, req ChatRequest) (string, error)
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a provider-neutral completion request.
type ChatRequest struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature *float64 // nil uses the provider default
}

// Temperature returns a pointer to t for ChatRequest.Temperature.
func Temperature(t float64) *float64 {
	return &t
}

// TicketFetcher loads a ticket snapshot from the issue tracker.
type TicketFetcher interface {
	FetchTicket(ctx context.Context, id string) (*Ticket, error)
}

// IssueCreator creates an issue from a drafted field map and returns the
// tracker's response body.
type IssueCreator interface {
	CreateIssue(ctx context.Context, fields map[string]any) (map[string]any, error)
}
