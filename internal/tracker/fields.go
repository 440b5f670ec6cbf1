package tracker

import "strings"

// RawFields is the heterogeneous "fields" object of a Jira issue, decoded
// as generic JSON.
type RawFields map[string]interface{}

// String returns the field as a string when it is one.
func (f RawFields) String(key string) (string, bool) {
	s, ok := f[key].(string)
	return s, ok
}

// Description returns the description as text. HTML from rich-text
// editors is flattened.
func (f RawFields) Description() string {
	s, _ := f.String("description")
	if looksLikeHTML(s) {
		return PlainText(s)
	}
	return s
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
