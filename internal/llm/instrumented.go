package llm

import (
	"context"
	"time"

	"devhelper/internal/types"
)

// Observer receives one callback per completed LLM call.
type Observer interface {
	ObserveLLM(provider string, d time.Duration, err error)
}

// InstrumentedClient wraps any LLMClient and reports call latency and outcome.
type InstrumentedClient struct {
	underlying types.LLMClient
	provider   string
	obs        Observer
}

// Instrument wraps c. A nil observer returns c unchanged.
func Instrument(c types.LLMClient, provider string, obs Observer) types.LLMClient {
	if obs == nil {
		return c
	}
	return &InstrumentedClient{underlying: c, provider: provider, obs: obs}
}

// CompleteWithSystem delegates and records the call.
func (ic *InstrumentedClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	start := time.Now()
	out, err := ic.underlying.CompleteWithSystem(ctx, systemPrompt, userPrompt, maxTokens)
	ic.obs.ObserveLLM(ic.provider, time.Since(start), err)
	return out, err
}

// CompleteChat delegates and records the call.
func (ic *InstrumentedClient) CompleteChat(ctx context.Context, req types.ChatRequest) (string, error) {
	start := time.Now()
	out, err := ic.underlying.CompleteChat(ctx, req)
	ic.obs.ObserveLLM(ic.provider, time.Since(start), err)
	return out, err
}
