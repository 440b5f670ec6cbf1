package review

import "fmt"

const (
	reviewSystemPrompt = "You are an expert code reviewer. Analyze the PR changes and provide detailed feedback."
	reviewMaxTokens    = 4000
)

// reviewUserPrompt leaves out the criteria block when criteria is empty.
func reviewUserPrompt(title string, filesCount int, criteria, changes string) string {
	prompt := fmt.Sprintf("Analyze this PR:\n\nTitle: %s\nFiles: %d\n\n", title, filesCount)
	if criteria != "" {
		prompt += fmt.Sprintf("Acceptance Criteria:\n%s\n\nValidate if the code meets ALL acceptance criteria.\n\n", criteria)
	}
	prompt += fmt.Sprintf("Code Changes:\n```\n%s\n```\n\n", changes)
	return prompt + "Provide analysis on: bugs, security issues, code quality, best practices, and AC validation (if provided)."
}
