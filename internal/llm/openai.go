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

// OpenAIClient implements types.LLMClient for the OpenAI Chat Completions API.
type OpenAIClient struct {
	transport
	apiKey  string
	baseURL string
	model   string
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model               string          `json:"model"`
	Messages            []openAIMessage `json:"messages"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	Temperature         *float64        `json:"temperature,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-5-mini"
	}
	return &OpenAIClient{
		transport: newTransport("openai", cfg.Timeout),
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
	}
}

// CompleteWithSystem sends a prompt with a system message.
func (c *OpenAIClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return c.CompleteChat(ctx, types.ChatRequest{
		System:    systemPrompt,
		Messages:  []types.Message{{Role: types.RoleUser, Content: userPrompt}},
		MaxTokens: maxTokens,
	})
}

// CompleteChat sends a multi-turn conversation. The system prompt becomes the
// first message; the reply is trimmed.
func (c *OpenAIClient) CompleteChat(ctx context.Context, req types.ChatRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("openai: %w", ErrNoAPIKey)
	}

	startTime := time.Now()
	logging.APIDebug("[OpenAI] model=%s system_len=%d messages=%d max_tokens=%d", c.model, len(req.System), len(req.Messages), req.MaxTokens)

	body := openAIRequest{
		Model:               c.model,
		MaxCompletionTokens: req.MaxTokens,
		Temperature:         req.Temperature,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, openAIMessage{Role: string(m.Role), Content: m.Content})
	}

	raw, err := c.postJSON(ctx, c.baseURL+"/chat/completions", map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}, body)
	if err != nil {
		return "", fmt.Errorf("error calling OpenAI API: %w", err)
	}

	var resp openAIResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", NewFatalError(fmt.Errorf("failed to parse response: %w", err))
	}
	if resp.Error != nil {
		return "", NewFatalError(fmt.Errorf("API error: %s", resp.Error.Message))
	}
	if len(resp.Choices) == 0 {
		return "", NewFatalError(fmt.Errorf("no completion returned"))
	}

	logging.API("[OpenAI] completed in %v prompt_tokens=%d completion_tokens=%d", time.Since(startTime), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
