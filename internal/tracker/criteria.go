package tracker

import (
	"regexp"
	"strings"
)

// NoCriteria is returned when a ticket carries no acceptance criteria.
const NoCriteria = "No acceptance criteria found"

// DefaultCriteriaField is the dedicated acceptance-criteria custom field.
const DefaultCriteriaField = "customfield_10115"

// auxiliaryFields are scanned in this order when the dedicated field is empty.
var auxiliaryFields = []string{
	"customfield_10000", "customfield_10001", "customfield_10002",
	"customfield_10003", "customfield_10004", "customfield_10005",
	"customfield_10100", "customfield_10101", "customfield_10102",
}

var criteriaMarkers = []string{"accept", "criteria", "given", "when", "then"}

var (
	criteriaHeadings = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^h\d\.\s*acceptance criteria`),
		regexp.MustCompile(`(?i)^#+\s*acceptance criteria`),
		regexp.MustCompile(`(?i)^\*?acceptance criteria:?\*?$`),
	}
	wikiHeading     = regexp.MustCompile(`^h\d\.`)
	markdownHeading = regexp.MustCompile(`^#+\s`)
)

// HasCriteria reports whether s is real criteria text rather than NoCriteria.
func HasCriteria(s string) bool {
	return s != NoCriteria
}

// ExtractAcceptanceCriteria pulls the acceptance-criteria block out of an
// issue's fields. criteriaField names the dedicated field; empty means
// DefaultCriteriaField. Returns NoCriteria when nothing qualifies.
func ExtractAcceptanceCriteria(fields RawFields, criteriaField string) string {
	if criteriaField == "" {
		criteriaField = DefaultCriteriaField
	}

	if v, ok := fields.String(criteriaField); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}

	for _, id := range auxiliaryFields {
		v, ok := fields.String(id)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		lower := strings.ToLower(v)
		for _, marker := range criteriaMarkers {
			if strings.Contains(lower, marker) {
				// Returned as stored, surrounding whitespace included.
				return v
			}
		}
	}

	return criteriaFromDescription(fields.Description())
}

func criteriaFromDescription(description string) string {
	var (
		inSection bool
		collected []string
	)
	for _, line := range strings.Split(description, "\n") {
		trimmed := strings.TrimSpace(line)

		if isCriteriaHeading(trimmed) {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}

		if strings.HasPrefix(trimmed, "{") || wikiHeading.MatchString(trimmed) || markdownHeading.MatchString(trimmed) {
			break
		}
		if trimmed != "" {
			collected = append(collected, line)
		}
	}

	extracted := strings.TrimSpace(strings.Join(collected, "\n"))
	if len(extracted) > 10 && !strings.HasPrefix(extracted, "{") {
		return extracted
	}
	return NoCriteria
}

func isCriteriaHeading(trimmed string) bool {
	for _, re := range criteriaHeadings {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return false
}
