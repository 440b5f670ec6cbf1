package main

import (
	"context"
	"fmt"

	"devhelper/internal/browser"
	"devhelper/internal/chat"
	"devhelper/internal/config"
	"devhelper/internal/llm"
	"devhelper/internal/logging"
	"devhelper/internal/metrics"
	"devhelper/internal/qa"
	"devhelper/internal/review"
	"devhelper/internal/scm"
	"devhelper/internal/ticketgen"
	"devhelper/internal/tracker"
)

// app holds every wired component for one process.
type app struct {
	cfg       *config.Config
	metrics   *metrics.Metrics
	engine    *browser.RodEngine
	runner    *qa.Runner
	analyzer  *review.Analyzer
	drafter   *ticketgen.Drafter
	assistant *chat.Assistant
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	var m *metrics.Metrics
	var obs llm.Observer
	if cfg.Metrics.Enabled {
		m = metrics.New()
		obs = m
	}

	clients, err := llm.NewClients(ctx, cfg, obs)
	if err != nil {
		return nil, err
	}

	jira := tracker.NewClient(tracker.Config{
		Host:          cfg.Jira.Host,
		Email:         cfg.Jira.Email,
		APIToken:      cfg.Jira.APIToken,
		CriteriaField: cfg.Jira.CriteriaField,
		Timeout:       cfg.GetJiraTimeout(),
	})
	gh, err := scm.NewClient(scm.Config{
		Token:   cfg.GitHub.Token,
		BaseURL: cfg.GitHub.BaseURL,
		Timeout: cfg.GetGitHubTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}

	engine := browser.NewRodEngine(browser.Config{
		ControlURL:     cfg.Browser.ControlURL,
		Bin:            cfg.Browser.Bin,
		Flags:          cfg.Browser.Flags,
		Headless:       cfg.Browser.Headless,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		ActionTimeout:  cfg.GetActionTimeout(),
	})

	runner := qa.NewRunner(
		jira,
		qa.NewScenarioParser(clients.QA),
		qa.NewExecutor(engine, cfg.GetNavigationTimeout(), m),
		qa.NewReporter(clients.QA),
		m,
	)

	drafter := ticketgen.NewDrafter(clients.Drafting, jira, ticketgen.Options{
		ProjectID:     cfg.Jira.ProjectID,
		IssueTypeID:   cfg.Jira.IssueTypeID,
		Labels:        cfg.Jira.Labels,
		CriteriaField: cfg.Jira.CriteriaField,
	})

	assistant := chat.NewAssistant(chat.NewMemoryStore(cfg.GetSessionTTL()), clients.Drafting, drafter, cfg.Chat.CompleteAfter)
	assistant.OnSessionsChanged(m.SetChatSessions)

	logging.Boot("Providers: review=%s qa=%s drafting=%s", cfg.LLM.Review, cfg.LLM.QA, cfg.LLM.Drafting)
	return &app{
		cfg:       cfg,
		metrics:   m,
		engine:    engine,
		runner:    runner,
		analyzer:  review.NewAnalyzer(jira, gh, clients.Review, cfg.GitHub.MaxConcurrency),
		drafter:   drafter,
		assistant: assistant,
	}, nil
}

// Close releases the shared browser.
func (a *app) Close() {
	if err := a.engine.Shutdown(); err != nil {
		logging.BootWarn("Browser shutdown: %v", err)
	}
}
