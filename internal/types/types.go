package types

import "strings"

// Ticket is a snapshot of an issue-tracker record, fetched once per request.
type Ticket struct {
	Key                string   `json:"key"`
	Summary            string   `json:"summary"`
	Description        string   `json:"description"`
	AcceptanceCriteria string   `json:"acceptanceCriteria"`
	Status             string   `json:"status"`
	Assignee           string   `json:"assignee,omitempty"`
	Priority           string   `json:"priority"`
	IssueType          string   `json:"issueType"`
	LinkedPRs          []string `json:"linkedPRs,omitempty"`
}

// TicketRef is the short form of a ticket used in API responses.
type TicketRef struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
	Status  string `json:"status,omitempty"`
}

// Ref returns the short form of t.
func (t *Ticket) Ref() TicketRef {
	return TicketRef{Key: t.Key, Summary: t.Summary, Status: t.Status}
}

// UserMessages returns the content of every user turn, in order.
func UserMessages(msgs []Message) []string {
	var out []string
	for _, m := range msgs {
		if m.Role == RoleUser && strings.TrimSpace(m.Content) != "" {
			out = append(out, m.Content)
		}
	}
	return out
}
