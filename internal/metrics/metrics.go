// Package metrics exposes Prometheus instrumentation for the API, QA runs and
// LLM calls. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "devhelper"

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	qaRuns       *prometheus.CounterVec
	scenarios    *prometheus.CounterVec
	llmCalls     *prometheus.HistogramVec
	chatSessions prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 120},
		}, []string{"route"}),
		qaRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qa_runs_total",
			Help:      "QA runs by outcome (passed, failed, error).",
		}, []string{"outcome"}),
		scenarios: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qa_scenarios_total",
			Help:      "Executed QA scenarios by action and result.",
		}, []string{"action", "result"}),
		llmCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_duration_seconds",
			Help:      "LLM call latency by provider and outcome.",
			Buckets:   []float64{.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}, []string{"provider", "outcome"}),
		chatSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chat_sessions",
			Help:      "Live chat assistant sessions.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.qaRuns,
		m.scenarios,
		m.llmCalls,
		m.chatSessions,
	)
	return m
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordRun records a finished QA run.
func (m *Metrics) RecordRun(outcome string) {
	if m == nil {
		return
	}
	m.qaRuns.WithLabelValues(outcome).Inc()
}

// RecordScenario records one executed scenario.
func (m *Metrics) RecordScenario(action string, passed bool) {
	if m == nil {
		return
	}
	result := "failed"
	if passed {
		result = "passed"
	}
	m.scenarios.WithLabelValues(action, result).Inc()
}

// ObserveLLM records one LLM call. Satisfies llm.Observer.
func (m *Metrics) ObserveLLM(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.llmCalls.WithLabelValues(provider, outcome).Observe(d.Seconds())
}

// SetChatSessions sets the live chat session gauge.
func (m *Metrics) SetChatSessions(n int) {
	if m == nil {
		return
	}
	m.chatSessions.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
