package qa

import (
	"context"

	"devhelper/internal/logging"
	"devhelper/internal/types"
)

// ScenarioParser turns acceptance criteria into scenarios with an LLM.
type ScenarioParser struct {
	client types.LLMClient
}

// NewScenarioParser creates a parser backed by client.
func NewScenarioParser(client types.LLMClient) *ScenarioParser {
	return &ScenarioParser{client: client}
}

// Parse asks the model for scenarios. It never fails: a model error or
// unusable output yields an empty plan.
func (p *ScenarioParser) Parse(ctx context.Context, criteria, summary, description string) Scenarios {
	raw, err := p.client.CompleteWithSystem(ctx, scenarioSystemPrompt, scenarioUserPrompt(summary, description, criteria), scenarioMaxTokens)
	if err != nil {
		logging.QAWarn("Scenario generation failed, continuing with no scenarios: %v", err)
		return Scenarios{}
	}

	scenarios, ok := ParseScenarios(raw)
	if !ok {
		logging.QAWarn("Unusable scenario output (%d bytes), continuing with no scenarios", len(raw))
		return Scenarios{}
	}

	logging.QA("Parsed %d scenarios", len(scenarios))
	return scenarios
}
