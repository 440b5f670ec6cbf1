package qa

import "fmt"

const (
	scenarioSystemPrompt = `You are a QA engineer. Convert acceptance criteria into executable test scenarios.
Return JSON format: {"scenarios": [{"description": "...", "action": "check_style|click|check_text|check_visibility", "target": "CSS selector", "expected": "...", "value": "optional"}]}`

	reportSystemPrompt = "You are a QA analyst. Generate a comprehensive test report."

	scenarioMaxTokens = 2000
	reportMaxTokens   = 1500
)

func scenarioUserPrompt(summary, description, criteria string) string {
	return fmt.Sprintf("Ticket: %s\n\nDescription: %s\n\nAcceptance Criteria:\n%s\n\nGenerate test scenarios.", summary, description, criteria)
}

func reportUserPrompt(key, summary, resultsJSON string) string {
	return fmt.Sprintf("Ticket: %s - %s\n\nTest Results:\n%s\n\nProvide analysis and recommendations.", key, summary, resultsJSON)
}
