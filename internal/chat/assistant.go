// Package chat is the conversational assistant that gathers requirements
// before a ticket is drafted.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"devhelper/internal/logging"
	"devhelper/internal/types"
)

var (
	// ErrMissingSessionID is returned when a request names no session.
	ErrMissingSessionID = errors.New("session ID is required")
	// ErrMissingMessage is returned for an empty user message.
	ErrMissingMessage = errors.New("session ID and message are required")
	// ErrNothingToDraft is returned when the user has not said anything yet.
	ErrNothingToDraft = errors.New("conversation has no user messages")
)

const (
	StageInitial = "initial"

	// DefaultCompleteAfter is the message count at which a conversation is
	// reported complete.
	DefaultCompleteAfter = 18

	replyMaxTokens   = 300
	replyTemperature = 0.7
)

const greeting = "Hi! I'm here to help you create a comprehensive Jira ticket. Let's start by understanding what you want to build.\n\nCan you briefly describe the task or feature you'd like to create a ticket for?"

const assistantSystemPrompt = `You are a helpful Product Manager assistant helping users create comprehensive Jira tickets.
Ask ONE question at a time about: user stories (who, what, why), detailed description, and acceptance criteria.
Be conversational and friendly. After gathering enough information (around 8-10 exchanges), let the user know they can generate the ticket.`

// Drafter turns a task description into a ticket and files it. It is
// satisfied by *ticketgen.Drafter.
type Drafter interface {
	Draft(ctx context.Context, taskDescription string) (map[string]any, error)
	Submit(ctx context.Context, content map[string]any) (map[string]any, error)
}

// Assistant runs chat sessions.
type Assistant struct {
	store         Store
	client        types.LLMClient
	drafter       Drafter
	completeAfter int
	onChange      func(live int)
}

// NewAssistant wires an assistant. completeAfter <= 0 uses
// DefaultCompleteAfter.
func NewAssistant(store Store, client types.LLMClient, drafter Drafter, completeAfter int) *Assistant {
	if completeAfter <= 0 {
		completeAfter = DefaultCompleteAfter
	}
	return &Assistant{store: store, client: client, drafter: drafter, completeAfter: completeAfter}
}

// OnSessionsChanged registers a callback receiving the live session count
// after every create or delete.
func (a *Assistant) OnSessionsChanged(fn func(live int)) {
	a.onChange = fn
}

func (a *Assistant) changed() {
	if a.onChange != nil {
		a.onChange(a.store.Len())
	}
}

// Store returns the assistant's session store.
func (a *Assistant) Store() Store { return a.store }

// Start opens a session seeded with the greeting.
func (a *Assistant) Start() Session {
	s := Session{
		ID:       "session_" + uuid.NewString(),
		Messages: []types.Message{{Role: types.RoleAssistant, Content: greeting}},
		Stage:    StageInitial,
	}
	a.store.Create(s)
	a.changed()
	logging.ChatDebug("Started chat session %s", s.ID)
	return s
}

// Reply is the assistant's answer to one user message.
type Reply struct {
	Message    string `json:"message"`
	Stage      string `json:"stage"`
	IsComplete bool   `json:"isComplete"`
}

// Message appends the user's message, asks the model for the next question
// and appends its answer. The user message is kept even when the model call
// fails.
func (a *Assistant) Message(ctx context.Context, sessionID, message string) (*Reply, error) {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(message) == "" {
		return nil, ErrMissingMessage
	}

	s, err := a.store.Update(sessionID, func(s *Session) {
		s.Messages = append(s.Messages, types.Message{Role: types.RoleUser, Content: message})
	})
	if err != nil {
		return nil, err
	}

	answer, err := a.client.CompleteChat(ctx, types.ChatRequest{
		System:      assistantSystemPrompt,
		Messages:    s.Messages,
		MaxTokens:   replyMaxTokens,
		Temperature: types.Temperature(replyTemperature),
	})
	if err != nil {
		return nil, fmt.Errorf("error processing chat message: %w", err)
	}
	answer = strings.TrimSpace(answer)

	s, err = a.store.Update(sessionID, func(s *Session) {
		s.Messages = append(s.Messages, types.Message{Role: types.RoleAssistant, Content: answer})
	})
	if err != nil {
		return nil, err
	}

	logging.ChatDebug("Session %s now has %d messages", sessionID, len(s.Messages))
	return &Reply{
		Message:    answer,
		Stage:      s.Stage,
		IsComplete: len(s.Messages) >= a.completeAfter,
	}, nil
}

// Draft is a ticket drafted from a conversation.
type Draft struct {
	TicketContent   map[string]any `json:"ticketContent"`
	JiraResponse    map[string]any `json:"jiraResponse,omitempty"`
	TaskDescription string         `json:"taskDescription"`
}

// Generate drafts a ticket from the user's side of the conversation.
func (a *Assistant) Generate(ctx context.Context, sessionID string) (*Draft, error) {
	task, err := a.taskDescription(sessionID)
	if err != nil {
		return nil, err
	}
	content, err := a.drafter.Draft(ctx, task)
	if err != nil {
		return nil, err
	}
	return &Draft{TicketContent: content, TaskDescription: task}, nil
}

// Create drafts and files a ticket, then ends the session.
func (a *Assistant) Create(ctx context.Context, sessionID string) (*Draft, error) {
	d, err := a.Generate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	resp, err := a.drafter.Submit(ctx, d.TicketContent)
	if err != nil {
		return nil, err
	}
	d.JiraResponse = resp

	a.store.Delete(sessionID)
	a.changed()
	logging.Chat("Session %s filed as %v", sessionID, resp["key"])
	return d, nil
}

func (a *Assistant) taskDescription(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrMissingSessionID
	}
	s, err := a.store.Get(sessionID)
	if err != nil {
		return "", err
	}
	msgs := types.UserMessages(s.Messages)
	if len(msgs) == 0 {
		return "", ErrNothingToDraft
	}
	return strings.Join(msgs, "\n\n"), nil
}
