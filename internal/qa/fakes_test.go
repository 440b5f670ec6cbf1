package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"devhelper/internal/browser"
	"devhelper/internal/types"
)

// MockLLMClient is a hand-written LLM fake with overridable behavior.
type MockLLMClient struct {
	CompleteWithSystemFunc func(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)

	mu    sync.Mutex
	calls []llmCall
}

type llmCall struct {
	System    string
	User      string
	MaxTokens int
}

func (m *MockLLMClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, llmCall{System: systemPrompt, User: userPrompt, MaxTokens: maxTokens})
	m.mu.Unlock()
	if m.CompleteWithSystemFunc != nil {
		return m.CompleteWithSystemFunc(ctx, systemPrompt, userPrompt, maxTokens)
	}
	return "", nil
}

func (m *MockLLMClient) CompleteChat(ctx context.Context, req types.ChatRequest) (string, error) {
	return "", errors.New("not used")
}

func (m *MockLLMClient) Calls() []llmCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llmCall(nil), m.calls...)
}

// fakeElement is one node of a fakePage.
type fakeElement struct {
	text     string
	style    browser.Style
	clickErr error
	onClick  func(p *fakePage)
}

func (e *fakeElement) Selector() string { return "" }

// fakePage resolves selectors against a fixed map. Selectors containing
// "!!" are treated as syntactically invalid.
type fakePage struct {
	elements map[string]*fakeElement
	clicks   []string
}

func (p *fakePage) check(selector string) error {
	if strings.Contains(selector, "!!") || selector == "" {
		return fmt.Errorf("invalid selector %q", selector)
	}
	return nil
}

func (p *fakePage) Locate(_ context.Context, selector string) (browser.Element, bool, error) {
	if err := p.check(selector); err != nil {
		return nil, false, err
	}
	el, ok := p.elements[selector]
	if !ok {
		return nil, false, nil
	}
	return el, true, nil
}

func (p *fakePage) ComputedStyle(_ context.Context, el browser.Element) (browser.Style, error) {
	return el.(*fakeElement).style, nil
}

func (p *fakePage) Text(_ context.Context, selector string) (string, error) {
	if err := p.check(selector); err != nil {
		return "", err
	}
	el, ok := p.elements[selector]
	if !ok {
		return "", fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}
	return el.text, nil
}

func (p *fakePage) Click(_ context.Context, selector string) error {
	if err := p.check(selector); err != nil {
		return err
	}
	el, ok := p.elements[selector]
	if !ok {
		return fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}
	if el.clickErr != nil {
		return el.clickErr
	}
	p.clicks = append(p.clicks, selector)
	if el.onClick != nil {
		el.onClick(p)
	}
	return nil
}

type fakeSession struct {
	page    *fakePage
	openErr error
	opened  []string
	closes  int
}

func (s *fakeSession) Open(_ context.Context, url string, _ time.Duration) (browser.Page, error) {
	s.opened = append(s.opened, url)
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.page, nil
}

func (s *fakeSession) Close() error {
	s.closes++
	return nil
}

type fakeEngine struct {
	session   *fakeSession
	launchErr error
	launches  int
}

func (e *fakeEngine) Launch(context.Context) (browser.Session, error) {
	e.launches++
	if e.launchErr != nil {
		return nil, e.launchErr
	}
	return e.session, nil
}

func newFakeEngine(elements map[string]*fakeElement) *fakeEngine {
	return &fakeEngine{session: &fakeSession{page: &fakePage{elements: elements}}}
}

type fakeTickets struct {
	ticket *types.Ticket
	err    error
	asked  []string
}

func (f *fakeTickets) FetchTicket(_ context.Context, id string) (*types.Ticket, error) {
	f.asked = append(f.asked, id)
	if f.err != nil {
		return nil, f.err
	}
	return f.ticket, nil
}

type countingRecorder struct {
	runs      []string
	scenarios []string
}

func (c *countingRecorder) RecordRun(outcome string) { c.runs = append(c.runs, outcome) }
func (c *countingRecorder) RecordScenario(action string, passed bool) {
	c.scenarios = append(c.scenarios, fmt.Sprintf("%s:%v", action, passed))
}
