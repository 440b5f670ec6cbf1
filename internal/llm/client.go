// Package llm holds the language-model clients used by the QA runner, the
// PR analyzer and the ticket drafting features.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"devhelper/internal/logging"
)

const (
	// defaultMaxRetries matches the retry count of the vendor SDKs.
	defaultMaxRetries = 2
	defaultBackoff    = 500 * time.Millisecond
	defaultTimeout    = 120 * time.Second
)

// Config holds configuration for an HTTP-backed provider client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// transport is the shared HTTP plumbing of the Anthropic and OpenAI clients.
type transport struct {
	provider   string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

func newTransport(provider string, timeout time.Duration) transport {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return transport{
		provider:   provider,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
	}
}

// postJSON marshals body, POSTs it with headers and returns the raw response
// body. 429 and 5xx responses and network errors are retried with
// exponential backoff; other statuses fail immediately as fatal errors.
func (t transport) postJSON(ctx context.Context, url string, headers map[string]string, body interface{}) ([]byte, error) {
	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.httpClient.Timeout)
		defer cancel()
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("failed to marshal request: %w", err))
	}

	var lastErr error
	for i := 0; i <= t.maxRetries; i++ {
		if i > 0 {
			wait := t.backoff * time.Duration(1<<uint(i-1))
			logging.APIDebug("[%s] retry %d/%d in %v: %v", t.provider, i, t.maxRetries, wait, lastErr)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s request cancelled: %w", t.provider, ctx.Err())
			case <-time.After(wait):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if err != nil {
			return nil, NewFatalError(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := t.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%s request failed: %w", t.provider, err)
			}
			lastErr = NewTransientError(fmt.Errorf("%s request failed: %w", t.provider, err))
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = NewTransientError(fmt.Errorf("failed to read response: %w", err))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			classified := classifyHTTPError(t.provider, resp.StatusCode, respBody)
			if IsTransient(classified) {
				lastErr = classified
				continue
			}
			logging.APIError("[%s] API returned status %d", t.provider, resp.StatusCode)
			return nil, classified
		}

		return respBody, nil
	}

	logging.APIError("[%s] max retries exceeded: %v", t.provider, lastErr)
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
