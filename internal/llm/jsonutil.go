package llm

import "strings"

// ExtractJSON returns the span from the first '{' to the last '}' of an LLM
// response, or "" when there is no such span. Code fences and prose around
// the object are discarded; the span itself is not repaired.
func ExtractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return ""
	}
	return content[start : end+1]
}
