package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devhelper/internal/chat"
	"devhelper/internal/config"
	"devhelper/internal/qa"
	"devhelper/internal/review"
	"devhelper/internal/ticketgen"
	"devhelper/internal/types"
)

type fakeQA struct {
	RunFunc func(ctx context.Context, ticketID, portalURL string) (*qa.Run, error)
}

func (f *fakeQA) Run(ctx context.Context, ticketID, portalURL string) (*qa.Run, error) {
	if f.RunFunc != nil {
		return f.RunFunc(ctx, ticketID, portalURL)
	}
	return nil, errors.New("not configured")
}

type fakeReview struct {
	AnalyzeFunc func(ctx context.Context, ticketID string, prURLs []string) (*review.Report, error)
}

func (f *fakeReview) Analyze(ctx context.Context, ticketID string, prURLs []string) (*review.Report, error) {
	if f.AnalyzeFunc != nil {
		return f.AnalyzeFunc(ctx, ticketID, prURLs)
	}
	return nil, errors.New("not configured")
}

type fakeTickets struct {
	DraftFunc  func(ctx context.Context, task string) (map[string]any, error)
	CreateFunc func(ctx context.Context, task string) (*ticketgen.Created, error)
}

func (f *fakeTickets) Draft(ctx context.Context, task string) (map[string]any, error) {
	if f.DraftFunc != nil {
		return f.DraftFunc(ctx, task)
	}
	return nil, errors.New("not configured")
}

func (f *fakeTickets) Create(ctx context.Context, task string) (*ticketgen.Created, error) {
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, task)
	}
	return nil, errors.New("not configured")
}

type fakeObserver struct {
	routes []string
}

func (f *fakeObserver) ObserveHTTP(route string, status int, _ time.Duration) {
	f.routes = append(f.routes, fmt.Sprintf("%s %d", route, status))
}

type testDeps struct {
	qa      *fakeQA
	review  *fakeReview
	tickets *fakeTickets
	drafter *stubDrafter
	chat    *chat.Assistant
	obs     *fakeObserver
}

// stubDrafter backs the real chat assistant in handler tests.
type stubDrafter struct {
	tasks []string
}

func (s *stubDrafter) Draft(_ context.Context, task string) (map[string]any, error) {
	s.tasks = append(s.tasks, task)
	return map[string]any{"fields": map[string]any{"summary": "From chat"}}, nil
}

func (s *stubDrafter) Submit(context.Context, map[string]any) (map[string]any, error) {
	return map[string]any{"key": "QA-100"}, nil
}

type echoLLM struct{}

func (echoLLM) CompleteWithSystem(context.Context, string, string, int) (string, error) {
	return "", nil
}

func (echoLLM) CompleteChat(_ context.Context, req types.ChatRequest) (string, error) {
	return "You said: " + req.Messages[len(req.Messages)-1].Content, nil
}

func newTestHandler(t *testing.T, maxBody int64) (http.Handler, *testDeps) {
	t.Helper()
	deps := &testDeps{
		qa:      &fakeQA{},
		review:  &fakeReview{},
		tickets: &fakeTickets{},
		drafter: &stubDrafter{},
		obs:     &fakeObserver{},
	}
	deps.chat = chat.NewAssistant(chat.NewMemoryStore(time.Hour), echoLLM{}, deps.drafter, 4)

	h, err := NewHandler(Config{
		QA:           deps.qa,
		Review:       deps.review,
		Tickets:      deps.tickets,
		Chat:         deps.chat,
		Services:     config.Services{PRAnalyzer: true, QAAgent: true},
		Observer:     deps.obs,
		Metrics:      http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
		MaxBodyBytes: maxBody,
	})
	require.NoError(t, err)
	return h, deps
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestNewHandlerRequiresBackends(t *testing.T) {
	_, err := NewHandler(Config{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	h, deps := newTestHandler(t, 0)
	rec, out := do(t, h, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "Personal Helper API is running", out["message"])
	assert.Equal(t, map[string]any{"prAnalyzer": true, "qaAgent": true, "ticketCreator": false}, out["services"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, []string{"/api/health 200"}, deps.obs.routes)
}

func TestMethodNotAllowed(t *testing.T) {
	h, deps := newTestHandler(t, 0)
	rec, out := do(t, h, http.MethodGet, "/api/qa-agent/test", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "expected POST", out["error"])
	assert.Equal(t, []string{"/api/qa-agent/test 405"}, deps.obs.routes)
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestHandler(t, 0)
	rec, _ := do(t, h, http.MethodOptions, "/api/qa-agent/test", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestMetricsRoute(t *testing.T) {
	h, _ := newTestHandler(t, 0)
	rec, _ := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}

func TestQATest_Success(t *testing.T) {
	h, deps := newTestHandler(t, 0)
	deps.qa.RunFunc = func(_ context.Context, ticketID, portalURL string) (*qa.Run, error) {
		assert.Equal(t, "QA-1", ticketID)
		assert.Equal(t, "http://portal", portalURL)
		return &qa.Run{
			Ticket:    types.TicketRef{Key: "QA-1", Summary: "Greeting", Status: "In QA"},
			Results:   []qa.Result{{Description: "d", Action: "check_text", Target: "#t", Expected: "Hi", Passed: false, Actual: "Bye"}},
			Total:     1,
			AllPassed: false,
			Report:    "1 failure",
		}, nil
	}

	rec, out := do(t, h, http.MethodPost, "/api/qa-agent/test", `{"ticketId":"QA-1","portalUrl":"http://portal"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, out["success"])
	assert.Equal(t, false, out["allTestsPassed"])
	assert.Equal(t, map[string]any{"key": "QA-1", "summary": "Greeting", "status": "In QA"}, out["ticket"])
	assert.Equal(t, "1 failure", out["report"])

	results := out["results"].(map[string]any)
	assert.Equal(t, float64(1), results["total"])
	assert.Equal(t, float64(0), results["passed"])
	assert.Equal(t, float64(1), results["failed"])
	tests := results["tests"].([]any)
	require.Len(t, tests, 1)
	assert.Equal(t, "Bye", tests[0].(map[string]any)["actual"])
}

func TestQATest_EmptyResultsIsArray(t *testing.T) {
	h, deps := newTestHandler(t, 0)
	deps.qa.RunFunc = func(context.Context, string, string) (*qa.Run, error) {
		return &qa.Run{Ticket: types.TicketRef{Key: "QA-1"}, AllPassed: true}, nil
	}
	rec, _ := do(t, h, http.MethodPost, "/api/qa-agent/test", `{"ticketId":"QA-1","portalUrl":"http://p"}`)
	assert.Contains(t, rec.Body.String(), `"tests":[]`)
	assert.Contains(t, rec.Body.String(), `"allTestsPassed":true`)
}

func TestQATest_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		want       map[string]any
	}{
		{
			name:       "missing input",
			err:        qa.ErrMissingInput,
			wantStatus: http.StatusBadRequest,
			want:       map[string]any{"error": "Missing ticketId or portalUrl"},
		},
		{
			name:       "no criteria",
			err:        &qa.StageError{Stage: qa.StageExtractCriteria, Ticket: &types.Ticket{Key: "QA-1", Summary: "S", Status: "Open"}, Err: qa.ErrNoCriteria},
			wantStatus: http.StatusBadRequest,
			want:       map[string]any{"error": "No acceptance criteria found in ticket", "ticket": map[string]any{"key": "QA-1", "summary": "S"}},
		},
		{
			name:       "fetch failure",
			err:        &qa.StageError{Stage: qa.StageFetchTicket, Err: errors.New("failed to fetch JIRA ticket QA-1: JIRA returned status 404")},
			wantStatus: http.StatusInternalServerError,
			want:       map[string]any{"error": "failed to fetch JIRA ticket QA-1: JIRA returned status 404"},
		},
		{
			name:       "navigation failure",
			err:        &qa.StageError{Stage: qa.StageExecuteScenarios, Err: fmt.Errorf("%w: %w", qa.ErrNavigation, errors.New("net::ERR_NAME_NOT_RESOLVED"))},
			wantStatus: http.StatusInternalServerError,
			want:       map[string]any{"error": "navigation failed: net::ERR_NAME_NOT_RESOLVED"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, deps := newTestHandler(t, 0)
			deps.qa.RunFunc = func(context.Context, string, string) (*qa.Run, error) { return nil, tt.err }
			rec, out := do(t, h, http.MethodPost, "/api/qa-agent/test", `{"ticketId":"QA-1","portalUrl":"http://p"}`)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestDecode_FormBody(t *testing.T) {
	h, deps := newTestHandler(t, 0)
	var gotTicket, gotURL string
	deps.qa.RunFunc = func(_ context.Context, ticketID, portalURL string) (*qa.Run, error) {
		gotTicket, gotURL = ticketID, portalURL
		return &qa.Run{}, nil
	}

	form := url.Values{"ticketId": {"QA-9"}, "portalUrl": {"http://portal"}}
	req := httptest.NewRequest(http.MethodPost, "/api/qa-agent/test", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "QA-9", gotTicket)
	assert.Equal(t, "http://portal", gotURL)
}

func TestDecode_Failures(t *testing.T) {
	h, _ := newTestHandler(t, 64)

	rec, out := do(t, h, http.MethodPost, "/api/qa-agent/test", `{"ticketId":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "decode request JSON", out["error"])

	rec, _ = do(t, h, http.MethodPost, "/api/qa-agent/test", `{"ticketId":"`+strings.Repeat("x", 100)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"auto-detect", `{"ticketId":"QA-1"}`, nil},
		{"empty string auto-detects", `{"ticketId":"QA-1","prUrls":""}`, nil},
		{"string", `{"ticketId":"QA-1","prUrls":"https://github.com/a/b/pull/1,\nhttps://github.com/a/b/pull/2"}`, []string{"https://github.com/a/b/pull/1", "https://github.com/a/b/pull/2"}},
		{"array", `{"ticketId":"QA-1","prUrls":["https://github.com/a/b/pull/3"]}`, []string{"https://github.com/a/b/pull/3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, deps := newTestHandler(t, 0)
			var got []string
			deps.review.AnalyzeFunc = func(_ context.Context, ticketID string, prURLs []string) (*review.Report, error) {
				got = prURLs
				return &review.Report{
					Ticket:  &types.Ticket{Key: ticketID},
					Results: []review.Result{{PRInfo: review.PRInfo{Owner: "a", Repo: "b", Number: 1}, FilesCount: 2, Analysis: "ok"}},
				}, nil
			}
			rec, out := do(t, h, http.MethodPost, "/api/pr-analyzer/analyze", tt.body)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, true, out["success"])
			assert.Equal(t, "QA-1", out["jiraTicket"].(map[string]any)["key"])
			assert.Len(t, out["results"], 1)
		})
	}
}

func TestAnalyze_Errors(t *testing.T) {
	for err, want := range map[error]string{
		review.ErrMissingTicket:  "Missing ticketId",
		review.ErrNoPullRequests: "No PRs found. Please provide PR URLs or link PRs to the JIRA ticket.",
	} {
		h, deps := newTestHandler(t, 0)
		deps.review.AnalyzeFunc = func(context.Context, string, []string) (*review.Report, error) { return nil, err }
		rec, out := do(t, h, http.MethodPost, "/api/pr-analyzer/analyze", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, want, out["error"])
	}
}

func TestTicketCreator(t *testing.T) {
	h, deps := newTestHandler(t, 0)
	draft := map[string]any{"fields": map[string]any{"summary": "Dark mode"}}
	deps.tickets.DraftFunc = func(_ context.Context, task string) (map[string]any, error) {
		if task == "" {
			return nil, ticketgen.ErrMissingDescription
		}
		return draft, nil
	}
	deps.tickets.CreateFunc = func(_ context.Context, task string) (*ticketgen.Created, error) {
		return &ticketgen.Created{TicketContent: draft, JiraResponse: map[string]any{"key": "QA-5"}}, nil
	}

	rec, out := do(t, h, http.MethodPost, "/api/ticket-creator/generate", `{"taskDescription":"Add dark mode"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": true, "ticketContent": draft}, out)

	rec, out = do(t, h, http.MethodPost, "/api/ticket-creator/generate", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Task description is required", out["error"])

	rec, out = do(t, h, http.MethodPost, "/api/ticket-creator/create", `{"taskDescription":"Add dark mode"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "QA-5", out["jiraResponse"].(map[string]any)["key"])
	assert.Equal(t, draft, out["ticketContent"])
}

func TestChatFlow(t *testing.T) {
	h, deps := newTestHandler(t, 0)

	rec, out := do(t, h, http.MethodPost, "/api/ticket-creator/chat/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	id := out["sessionId"].(string)
	assert.True(t, strings.HasPrefix(id, "session_"))
	assert.Contains(t, out["message"], "comprehensive Jira ticket")

	rec, out = do(t, h, http.MethodPost, "/api/ticket-creator/chat/message", fmt.Sprintf(`{"sessionId":%q,"message":"dark mode"}`, id))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": true, "message": "You said: dark mode", "stage": "initial", "isComplete": false}, out)

	_, out = do(t, h, http.MethodPost, "/api/ticket-creator/chat/message", fmt.Sprintf(`{"sessionId":%q,"message":"for night owls"}`, id))
	assert.Equal(t, true, out["isComplete"], "complete after 4 messages in this handler")

	rec, out = do(t, h, http.MethodPost, "/api/ticket-creator/chat/generate", fmt.Sprintf(`{"sessionId":%q}`, id))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dark mode\n\nfor night owls", out["taskDescription"])

	rec, out = do(t, h, http.MethodPost, "/api/ticket-creator/chat/create", fmt.Sprintf(`{"sessionId":%q}`, id))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "QA-100", out["jiraResponse"].(map[string]any)["key"])
	assert.Len(t, deps.drafter.tasks, 2)

	rec, out = do(t, h, http.MethodPost, "/api/ticket-creator/chat/generate", fmt.Sprintf(`{"sessionId":%q}`, id))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Session not found", out["error"])
}

func TestChat_Errors(t *testing.T) {
	h, _ := newTestHandler(t, 0)

	rec, out := do(t, h, http.MethodPost, "/api/ticket-creator/chat/message", `{"sessionId":"session_x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Session ID and message are required", out["error"])

	rec, out = do(t, h, http.MethodPost, "/api/ticket-creator/chat/message", `{"sessionId":"session_x","message":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Session not found", out["error"])

	rec, out = do(t, h, http.MethodPost, "/api/ticket-creator/chat/create", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Session ID is required", out["error"])
}
