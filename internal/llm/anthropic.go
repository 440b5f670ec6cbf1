package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"devhelper/internal/logging"
	"devhelper/internal/types"
)

// AnthropicClient implements types.LLMClient for the Anthropic Messages API.
type AnthropicClient struct {
	transport
	apiKey  string
	baseURL string
	model   string
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(cfg Config) *AnthropicClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-sonnet-20241022"
	}
	return &AnthropicClient{
		transport: newTransport("anthropic", cfg.Timeout),
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
	}
}

// CompleteWithSystem sends a prompt with a system message.
func (c *AnthropicClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return c.CompleteChat(ctx, types.ChatRequest{
		System:    systemPrompt,
		Messages:  []types.Message{{Role: types.RoleUser, Content: userPrompt}},
		MaxTokens: maxTokens,
	})
}

// CompleteChat sends a multi-turn conversation. Only text blocks of the reply
// are returned.
func (c *AnthropicClient) CompleteChat(ctx context.Context, req types.ChatRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("anthropic: %w", ErrNoAPIKey)
	}

	startTime := time.Now()
	logging.APIDebug("[Anthropic] model=%s system_len=%d messages=%d max_tokens=%d", c.model, len(req.System), len(req.Messages), req.MaxTokens)

	body := anthropicRequest{
		Model:       c.model,
		MaxTokens:   req.MaxTokens,
		System:      req.System,
		Temperature: req.Temperature,
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = 4000
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}

	raw, err := c.postJSON(ctx, c.baseURL+"/messages", map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}, body)
	if err != nil {
		return "", fmt.Errorf("error calling Claude API: %w", err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", NewFatalError(fmt.Errorf("failed to parse response: %w", err))
	}
	if resp.Error != nil {
		return "", NewFatalError(fmt.Errorf("API error: %s", resp.Error.Message))
	}

	var result strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}

	logging.API("[Anthropic] completed in %v input_tokens=%d output_tokens=%d", time.Since(startTime), resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return result.String(), nil
}
