package llm

import (
	"context"
	"fmt"
	"time"

	"devhelper/internal/config"
	"devhelper/internal/types"
)

// NewClient creates an LLM client for a provider name.
func NewClient(ctx context.Context, provider string, pc config.ProviderConfig, timeout time.Duration) (types.LLMClient, error) {
	cfg := Config{APIKey: pc.APIKey, BaseURL: pc.BaseURL, Model: pc.Model, Timeout: timeout}
	switch provider {
	case config.ProviderAnthropic:
		return NewAnthropicClient(cfg), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s (valid: %v)", provider, config.ValidProviders)
	}
}

// Clients holds the client resolved for each feature role.
type Clients struct {
	Review   types.LLMClient
	QA       types.LLMClient
	Drafting types.LLMClient
}

// NewClients resolves one client per role from cfg. Roles sharing a
// provider share a client. Each client is wrapped with obs when non-nil.
func NewClients(ctx context.Context, cfg *config.Config, obs Observer) (*Clients, error) {
	cache := make(map[string]types.LLMClient)
	resolve := func(provider string) (types.LLMClient, error) {
		if c, ok := cache[provider]; ok {
			return c, nil
		}
		pc, ok := cfg.Provider(provider)
		if !ok {
			return nil, fmt.Errorf("unsupported provider: %s (valid: %v)", provider, config.ValidProviders)
		}
		if pc.APIKey == "" {
			// Requests fail with ErrNoAPIKey; the feature reports unavailable.
			c := types.LLMClient(missingKeyClient{provider: provider})
			cache[provider] = c
			return c, nil
		}
		c, err := NewClient(ctx, provider, pc, cfg.GetLLMTimeout())
		if err != nil {
			return nil, err
		}
		c = Instrument(c, provider, obs)
		cache[provider] = c
		return c, nil
	}

	var out Clients
	var err error
	if out.Review, err = resolve(cfg.LLM.Review); err != nil {
		return nil, fmt.Errorf("review client: %w", err)
	}
	if out.QA, err = resolve(cfg.LLM.QA); err != nil {
		return nil, fmt.Errorf("qa client: %w", err)
	}
	if out.Drafting, err = resolve(cfg.LLM.Drafting); err != nil {
		return nil, fmt.Errorf("drafting client: %w", err)
	}
	return &out, nil
}

type missingKeyClient struct {
	provider string
}

func (m missingKeyClient) CompleteWithSystem(context.Context, string, string, int) (string, error) {
	return "", fmt.Errorf("%s: %w", m.provider, ErrNoAPIKey)
}

func (m missingKeyClient) CompleteChat(context.Context, types.ChatRequest) (string, error) {
	return "", fmt.Errorf("%s: %w", m.provider, ErrNoAPIKey)
}
