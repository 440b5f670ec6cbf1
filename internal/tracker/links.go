package tracker

import (
	"regexp"
	"strings"

	jira "github.com/andygrunwald/go-jira"
)

var (
	ticketIDPattern = regexp.MustCompile(`([A-Z]{2,}-\d+)`)
	prURLPattern    = regexp.MustCompile(`https?://github\.com/([^/]+)/([^/]+)/pull/(\d+)`)
)

// ExtractTicketID finds an issue key such as "QA-123" anywhere in input,
// which may be a bare key or a ticket URL. Returns "" when there is none.
func ExtractTicketID(input string) string {
	return ticketIDPattern.FindString(input)
}

// isPRLink reports whether a remote-link URL points at a GitHub pull request.
func isPRLink(url string) bool {
	return strings.Contains(url, "github.com") && strings.Contains(url, "/pull/")
}

// linkedPRs merges PR URLs from remote links and the description,
// de-duplicated in first-seen order.
func linkedPRs(remote []jira.RemoteLink, description string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(url string) {
		if !seen[url] {
			seen[url] = true
			out = append(out, url)
		}
	}

	for _, l := range remote {
		if l.Object != nil && isPRLink(l.Object.URL) {
			add(l.Object.URL)
		}
	}
	for _, m := range prURLPattern.FindAllString(description, -1) {
		add(m)
	}
	return out
}
