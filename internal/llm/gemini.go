package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"devhelper/internal/logging"
	"devhelper/internal/types"
)

// GeminiClient implements types.LLMClient on the Google GenAI SDK.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiClient creates a Gemini client. No network traffic happens until
// the first completion.
func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrNoAPIKey)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{client: client, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// CompleteWithSystem sends a prompt with a system instruction.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return c.CompleteChat(ctx, types.ChatRequest{
		System:    systemPrompt,
		Messages:  []types.Message{{Role: types.RoleUser, Content: userPrompt}},
		MaxTokens: maxTokens,
	})
}

// CompleteChat sends a multi-turn conversation.
func (c *GeminiClient) CompleteChat(ctx context.Context, req types.ChatRequest) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.APIDebug("[Gemini] model=%s system_len=%d messages=%d max_tokens=%d", c.model, len(req.System), len(req.Messages), req.MaxTokens)

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == types.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	gc := &genai.GenerateContentConfig{}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature != nil {
		gc.Temperature = genai.Ptr(float32(*req.Temperature))
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, gc)
	if err != nil {
		return "", NewTransientError(fmt.Errorf("error calling Gemini API: %w", err))
	}

	text := resp.Text()
	logging.API("[Gemini] completed in %v response_len=%d", time.Since(startTime), len(text))
	return text, nil
}
