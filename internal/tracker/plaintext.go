package tracker

import (
	"strings"

	"golang.org/x/net/html"
)

// blockElements start a new line when flattened.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "table": true, "pre": true, "blockquote": true,
}

// PlainText flattens an HTML fragment to text, one line per block element.
// Input that does not parse is returned unchanged.
func PlainText(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
			if blockElements[n.Data] {
				sb.WriteString("\n")
			}
			if n.Data == "li" {
				sb.WriteString("- ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			sb.WriteString("\n")
		}
	}
	walk(doc)

	var lines []string
	for _, line := range strings.Split(sb.String(), "\n") {
		if t := strings.TrimSpace(line); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n")
}

// looksLikeHTML reports whether s is markup rather than wiki text.
func looksLikeHTML(s string) bool {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "<") || !strings.HasSuffix(t, ">") {
		return false
	}
	for _, tag := range []string{"<p", "<div", "<ul", "<ol", "<br", "<h1", "<h2", "<h3", "<table", "<span"} {
		if strings.Contains(strings.ToLower(t), tag) {
			return true
		}
	}
	return false
}
