package ticketgen

import (
	"fmt"
	"strconv"
	"strings"
)

const draftSystemPrompt = "You are a Product Manager creating Jira tickets.\nYour response must be ONLY valid JSON, nothing else."

func draftUserPrompt(taskDescription string, opts Options) string {
	quoted := make([]string, len(opts.Labels))
	for i, l := range opts.Labels {
		quoted[i] = strconv.Quote(l)
	}
	return fmt.Sprintf(`Create a Jira ticket JSON for: %s

Required values:
- issuetype.id must be "%s"
- project.id must be "%s"
- labels must be [%s]
- Include summary, description, and acceptance criteria (%s)

Respond with ONLY the JSON object.`, taskDescription, opts.IssueTypeID, opts.ProjectID, strings.Join(quoted, ", "), opts.CriteriaField)
}
