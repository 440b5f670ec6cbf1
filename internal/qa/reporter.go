package qa

import (
	"context"
	"encoding/json"
	"fmt"

	"devhelper/internal/types"
)

// Reporter writes a prose test report with an LLM.
type Reporter struct {
	client types.LLMClient
}

// NewReporter creates a reporter backed by client.
func NewReporter(client types.LLMClient) *Reporter {
	return &Reporter{client: client}
}

// Generate returns the model's report. The output is not interpreted.
func (r *Reporter) Generate(ctx context.Context, key, summary string, results []Result) (string, error) {
	if results == nil {
		results = []Result{}
	}
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}
	report, err := r.client.CompleteWithSystem(ctx, reportSystemPrompt, reportUserPrompt(key, summary, string(b)), reportMaxTokens)
	if err != nil {
		return "", fmt.Errorf("generate report: %w", err)
	}
	return report, nil
}
