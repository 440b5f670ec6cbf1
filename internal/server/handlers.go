// Package server exposes the QA runner, PR analyzer, ticket drafter and chat
// assistant over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"devhelper/internal/chat"
	"devhelper/internal/config"
	"devhelper/internal/qa"
	"devhelper/internal/review"
	"devhelper/internal/ticketgen"
	"devhelper/internal/types"
)

// Feature backends. Each is satisfied by the matching package's concrete type.
type (
	QARunner interface {
		Run(ctx context.Context, ticketID, portalURL string) (*qa.Run, error)
	}
	PRAnalyzer interface {
		Analyze(ctx context.Context, ticketID string, prURLs []string) (*review.Report, error)
	}
	TicketDrafter interface {
		Draft(ctx context.Context, taskDescription string) (map[string]any, error)
		Create(ctx context.Context, taskDescription string) (*ticketgen.Created, error)
	}
	ChatAssistant interface {
		Start() chat.Session
		Message(ctx context.Context, sessionID, message string) (*chat.Reply, error)
		Generate(ctx context.Context, sessionID string) (*chat.Draft, error)
		Create(ctx context.Context, sessionID string) (*chat.Draft, error)
	}
	// HTTPObserver receives one callback per served request.
	HTTPObserver interface {
		ObserveHTTP(route string, status int, d time.Duration)
	}
)

// Config wires the handler.
type Config struct {
	QA       QARunner
	Review   PRAnalyzer
	Tickets  TicketDrafter
	Chat     ChatAssistant
	Services config.Services

	Observer     HTTPObserver
	Metrics      http.Handler // served at MetricsPath when set
	MetricsPath  string
	MaxBodyBytes int64
	CORSOrigin   string
}

type handler struct {
	config Config
}

// NewHandler builds the API router.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.QA == nil || cfg.Review == nil || cfg.Tickets == nil || cfg.Chat == nil {
		return nil, errors.New("server: every feature backend is required")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	h := &handler{config: cfg}

	mux := http.NewServeMux()
	h.route(mux, "/api/health", http.MethodGet, h.handleHealth)
	h.route(mux, "/api/qa-agent/test", http.MethodPost, h.handleQATest)
	h.route(mux, "/api/pr-analyzer/analyze", http.MethodPost, h.handleAnalyze)
	h.route(mux, "/api/ticket-creator/generate", http.MethodPost, h.handleTicketGenerate)
	h.route(mux, "/api/ticket-creator/create", http.MethodPost, h.handleTicketCreate)
	h.route(mux, "/api/ticket-creator/chat/start", http.MethodPost, h.handleChatStart)
	h.route(mux, "/api/ticket-creator/chat/message", http.MethodPost, h.handleChatMessage)
	h.route(mux, "/api/ticket-creator/chat/generate", http.MethodPost, h.handleChatGenerate)
	h.route(mux, "/api/ticket-creator/chat/create", http.MethodPost, h.handleChatCreate)
	if cfg.Metrics != nil {
		mux.Handle(cfg.MetricsPath, cfg.Metrics)
	}

	return withCORS(cfg.CORSOrigin, mux), nil
}

// route registers fn behind a method check, access logging and metrics.
func (h *handler) route(mux *http.ServeMux, path, method string, fn http.HandlerFunc) {
	mux.Handle(path, instrument(path, h.config.Observer, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeError(w, http.StatusMethodNotAllowed, "expected "+method)
			return
		}
		fn(w, r)
	}))
}

type healthResponse struct {
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Services config.Services `json:"services"`
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Message:  "Personal Helper API is running",
		Services: h.config.Services,
	})
}

type qaResults struct {
	Total  int         `json:"total"`
	Passed int         `json:"passed"`
	Failed int         `json:"failed"`
	Tests  []qa.Result `json:"tests"`
}

type qaResponse struct {
	Success        bool            `json:"success"`
	AllTestsPassed bool            `json:"allTestsPassed"`
	Ticket         types.TicketRef `json:"ticket"`
	Results        qaResults       `json:"results"`
	Report         string          `json:"report"`
}

func (h *handler) handleQATest(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decode(w, r)
	if !ok {
		return
	}

	run, err := h.config.QA.Run(r.Context(), body.str("ticketId"), body.str("portalUrl"))
	if err != nil {
		var se *qa.StageError
		if errors.Is(err, qa.ErrNoCriteria) && errors.As(err, &se) && se.Ticket != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "No acceptance criteria found in ticket",
				"ticket": types.TicketRef{Key: se.Ticket.Key, Summary: se.Ticket.Summary},
			})
			return
		}
		writeFailure(w, err)
		return
	}

	tests := run.Results
	if tests == nil {
		tests = []qa.Result{}
	}
	writeJSON(w, http.StatusOK, qaResponse{
		Success:        true,
		AllTestsPassed: run.AllPassed,
		Ticket:         run.Ticket,
		Results: qaResults{
			Total:  run.Total,
			Passed: run.Passed,
			Failed: run.Failed(),
			Tests:  tests,
		},
		Report: run.Report,
	})
}

func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decode(w, r)
	if !ok {
		return
	}

	report, err := h.config.Review.Analyze(r.Context(), body.str("ticketId"), body.prURLs("prUrls"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	results := report.Results
	if results == nil {
		results = []review.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"jiraTicket": report.Ticket,
		"results":    results,
	})
}

func (h *handler) handleTicketGenerate(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decode(w, r)
	if !ok {
		return
	}
	content, err := h.config.Tickets.Draft(r.Context(), body.str("taskDescription"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "ticketContent": content})
}

func (h *handler) handleTicketCreate(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decode(w, r)
	if !ok {
		return
	}
	created, err := h.config.Tickets.Create(r.Context(), body.str("taskDescription"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"ticketContent": created.TicketContent,
		"jiraResponse":  created.JiraResponse,
	})
}

func (h *handler) handleChatStart(w http.ResponseWriter, _ *http.Request) {
	s := h.config.Chat.Start()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"sessionId": s.ID,
		"message":   s.Greeting(),
	})
}

func (h *handler) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decode(w, r)
	if !ok {
		return
	}
	reply, err := h.config.Chat.Message(r.Context(), body.str("sessionId"), body.str("message"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    reply.Message,
		"stage":      reply.Stage,
		"isComplete": reply.IsComplete,
	})
}

func (h *handler) handleChatGenerate(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decode(w, r)
	if !ok {
		return
	}
	d, err := h.config.Chat.Generate(r.Context(), body.str("sessionId"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"ticketContent":   d.TicketContent,
		"taskDescription": d.TaskDescription,
	})
}

func (h *handler) handleChatCreate(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decode(w, r)
	if !ok {
		return
	}
	d, err := h.config.Chat.Create(r.Context(), body.str("sessionId"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"ticketContent":   d.TicketContent,
		"jiraResponse":    d.JiraResponse,
		"taskDescription": d.TaskDescription,
	})
}
