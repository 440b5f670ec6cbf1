// Package qa is the ticket-driven browser test runner: criteria become
// scenarios, scenarios run in a headless browser, results become a report.
package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"devhelper/internal/logging"
	"devhelper/internal/tracker"
	"devhelper/internal/types"
)

var (
	// ErrMissingInput is returned when the ticket id or portal URL is empty.
	ErrMissingInput = errors.New("missing ticketId or portalUrl")
	// ErrNoCriteria is returned when the ticket has no acceptance criteria.
	ErrNoCriteria = errors.New("no acceptance criteria found in ticket")
	// ErrNavigation is returned when the portal page cannot be loaded.
	ErrNavigation = errors.New("navigation failed")
)

// Stage names one step of a run.
type Stage string

const (
	StageFetchTicket      Stage = "fetch_ticket"
	StageExtractCriteria  Stage = "extract_criteria"
	StageParseScenarios   Stage = "parse_scenarios"
	StageExecuteScenarios Stage = "execute_scenarios"
	StageGenerateReport   Stage = "generate_report"
)

// StageError reports which stage ended a run.
type StageError struct {
	Stage  Stage
	Ticket *types.Ticket // set once the ticket has been fetched
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("qa %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IsInputError reports whether err is caused by the caller's input rather
// than a downstream failure.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingInput) || errors.Is(err, ErrNoCriteria)
}

// Run is the aggregate outcome of one invocation. Never persisted.
type Run struct {
	ID        string          `json:"id"`
	Ticket    types.TicketRef `json:"ticket"`
	PortalURL string          `json:"portalUrl"`
	Scenarios Scenarios       `json:"scenarios"`
	Results   []Result        `json:"results"`
	Passed    int             `json:"passed"`
	Total     int             `json:"total"`
	AllPassed bool            `json:"allPassed"`
	Report    string          `json:"report"`
	StartedAt time.Time       `json:"startedAt"`
	Duration  time.Duration   `json:"duration"`
}

// Failed returns the number of failed scenarios.
func (r *Run) Failed() int {
	return r.Total - r.Passed
}

// Stage collaborators.
type (
	ScenarioSource interface {
		Parse(ctx context.Context, criteria, summary, description string) Scenarios
	}
	ScenarioRunner interface {
		Execute(ctx context.Context, url string, scenarios Scenarios) ([]Result, error)
	}
	ReportWriter interface {
		Generate(ctx context.Context, key, summary string, results []Result) (string, error)
	}
	// RunRecorder receives one callback per finished run.
	RunRecorder interface {
		RecordRun(outcome string)
	}
)

// Runner sequences the stages of a QA run.
type Runner struct {
	tickets  types.TicketFetcher
	parser   ScenarioSource
	executor ScenarioRunner
	reporter ReportWriter
	recorder RunRecorder
	now      func() time.Time
}

// NewRunner wires a runner. recorder may be nil.
func NewRunner(tickets types.TicketFetcher, parser ScenarioSource, executor ScenarioRunner, reporter ReportWriter, recorder RunRecorder) *Runner {
	return &Runner{
		tickets:  tickets,
		parser:   parser,
		executor: executor,
		reporter: reporter,
		recorder: recorder,
		now:      time.Now,
	}
}

// NormalizeTicketID accepts a bare key or a ticket URL.
func NormalizeTicketID(input string) string {
	if id := tracker.ExtractTicketID(input); id != "" {
		return id
	}
	return strings.TrimSpace(input)
}

// Run executes FetchTicket, ExtractCriteria, ParseScenarios,
// ExecuteScenarios and GenerateReport in order. Any stage failure is
// returned as a *StageError. Failing scenarios are not an error.
func (r *Runner) Run(ctx context.Context, ticketID, portalURL string) (*Run, error) {
	ticketID = NormalizeTicketID(ticketID)
	portalURL = strings.TrimSpace(portalURL)
	if ticketID == "" || portalURL == "" {
		return nil, ErrMissingInput
	}

	run := &Run{ID: uuid.NewString(), PortalURL: portalURL, StartedAt: r.now()}
	log := logging.Get(logging.CategoryQA).With("run_id", run.ID, "ticket", ticketID)
	log.Info("Starting QA run against %s", portalURL)

	result, err := r.run(ctx, run, ticketID, log)
	outcome := "error"
	switch {
	case err != nil:
		log.Warn("QA run failed: %v", err)
	case result.AllPassed:
		outcome = "passed"
	default:
		outcome = "failed"
	}
	if r.recorder != nil {
		r.recorder.RecordRun(outcome)
	}
	return result, err
}

func (r *Runner) run(ctx context.Context, run *Run, ticketID string, log *logging.Logger) (*Run, error) {
	ticket, err := r.tickets.FetchTicket(ctx, ticketID)
	if err != nil {
		return nil, &StageError{Stage: StageFetchTicket, Err: err}
	}
	run.Ticket = ticket.Ref()

	criteria := ticket.AcceptanceCriteria
	if !tracker.HasCriteria(criteria) || strings.TrimSpace(criteria) == "" {
		return nil, &StageError{Stage: StageExtractCriteria, Ticket: ticket, Err: ErrNoCriteria}
	}

	run.Scenarios = r.parser.Parse(ctx, criteria, ticket.Summary, ticket.Description)
	log.Info("Executing %d scenarios", len(run.Scenarios))

	results, err := r.executor.Execute(ctx, run.PortalURL, run.Scenarios)
	if err != nil {
		return nil, &StageError{Stage: StageExecuteScenarios, Ticket: ticket, Err: err}
	}
	run.Results = results
	run.Total = len(results)
	for _, res := range results {
		if res.Passed {
			run.Passed++
		}
	}
	run.AllPassed = run.Passed == run.Total

	report, err := r.reporter.Generate(ctx, ticket.Key, ticket.Summary, results)
	if err != nil {
		return nil, &StageError{Stage: StageGenerateReport, Ticket: ticket, Err: err}
	}
	run.Report = report
	run.Duration = r.now().Sub(run.StartedAt)

	log.Info("QA run finished: %d/%d passed in %v", run.Passed, run.Total, run.Duration)
	return run, nil
}
