package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m := New()

	m.ObserveHTTP("/api/health", 200, 5*time.Millisecond)
	m.ObserveHTTP("/api/health", 200, 5*time.Millisecond)
	m.RecordRun("passed")
	m.RecordScenario("click", true)
	m.RecordScenario("check_text", false)
	m.ObserveLLM("anthropic", time.Second, nil)
	m.ObserveLLM("anthropic", time.Second, errors.New("boom"))
	m.SetChatSessions(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.qaRuns.WithLabelValues("passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scenarios.WithLabelValues("click", "passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scenarios.WithLabelValues("check_text", "failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.chatSessions))
	assert.Equal(t, 2, testutil.CollectAndCount(m.llmCalls))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("/x", 500, time.Second)
	m.RecordRun("error")
	m.RecordScenario("click", false)
	m.ObserveLLM("openai", time.Second, nil)
	m.SetChatSessions(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.RecordRun("failed")

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `devhelper_qa_runs_total{outcome="failed"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
